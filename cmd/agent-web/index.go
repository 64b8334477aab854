package main

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Financial AI Agent Chat</title>
<style>
  body { font-family: -apple-system, Segoe UI, sans-serif; margin: 0; background: #f4f5f7; }
  main { max-width: 720px; margin: 0 auto; padding: 1rem; display: flex; flex-direction: column; height: 100vh; box-sizing: border-box; }
  h1 { font-size: 1.2rem; margin: .3rem 0 .8rem; }
  #log { flex: 1; overflow-y: auto; background: #fff; border: 1px solid #ddd; border-radius: 8px; padding: 1rem; }
  .msg { margin: .5rem 0; padding: .5rem .75rem; border-radius: 8px; white-space: pre-wrap; }
  .user { background: #dbeafe; margin-left: 15%; }
  .assistant { background: #f1f5f9; margin-right: 15%; }
  .error { background: #fee2e2; }
  .tool { font-size: .75rem; color: #64748b; margin: -0.3rem 0 .5rem .2rem; }
  form { display: flex; gap: .5rem; margin-top: .75rem; }
  input { flex: 1; padding: .6rem; border: 1px solid #ccc; border-radius: 6px; font-size: 1rem; }
  button { padding: .6rem 1.2rem; border: 0; border-radius: 6px; background: #2563eb; color: #fff; font-size: 1rem; cursor: pointer; }
  button:disabled { background: #93c5fd; }
</style>
</head>
<body>
<main>
  <h1>Financial AI Agent Chat</h1>
  <div id="log"></div>
  <form id="form">
    <input id="input" placeholder="Ask about currency rates..." autocomplete="off" autofocus>
    <button id="send" type="submit">Send</button>
  </form>
</main>
<script>
const backend = "{{BACKEND_URL}}";
const log = document.getElementById("log");
const form = document.getElementById("form");
const input = document.getElementById("input");
const send = document.getElementById("send");
let sessionId = null;

function addMessage(role, text) {
  const div = document.createElement("div");
  div.className = "msg " + role;
  div.textContent = text;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
  return div;
}

function addToolNote(tool) {
  const div = document.createElement("div");
  div.className = "tool";
  div.textContent = "Tool used: " + tool;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
}

form.addEventListener("submit", async (e) => {
  e.preventDefault();
  const message = input.value.trim();
  if (!message) return;
  input.value = "";
  send.disabled = true;
  addMessage("user", message);
  try {
    const body = { message };
    if (sessionId) body.sessionId = sessionId;
    const resp = await fetch(backend + "/chat", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify(body),
    });
    if (!resp.ok) {
      addMessage("assistant error", "Sorry, something went wrong. Please try again.");
      return;
    }
    const data = await resp.json();
    if (data.sessionId) sessionId = data.sessionId;
    addMessage("assistant", data.reply);
    if (data.toolUsed) addToolNote(data.toolUsed);
  } catch (err) {
    addMessage("assistant error", "Cannot reach the backend. Please make sure it is running.");
  } finally {
    send.disabled = false;
    input.focus();
  }
});
</script>
</body>
</html>`
