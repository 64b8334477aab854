package server

import "net/http"

// docsHTML is a static API reference served at /docs.
const docsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Currency Agent API</title>
<style>
  body { font-family: -apple-system, Segoe UI, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; }
  h1 { border-bottom: 2px solid #eee; padding-bottom: .4rem; }
  code, pre { background: #f6f8fa; border-radius: 4px; padding: .15rem .35rem; }
  pre { padding: .75rem; overflow-x: auto; }
  .method { display: inline-block; min-width: 4.5rem; font-weight: 600; }
  .get { color: #0969da; } .post { color: #1a7f37; } .delete { color: #cf222e; }
  li { margin: .5rem 0; }
</style>
</head>
<body>
<h1>Currency Agent API</h1>
<p>Chat backend that answers questions with the OpenAI completion API and a
currency-rate lookup tool backed by the National Bank of Ukraine.</p>
<ul>
  <li><span class="method get">GET</span> <code>/health</code> — liveness and configuration status.</li>
  <li><span class="method post">POST</span> <code>/chat</code> — send a message. Body:
    <pre>{"message": "What is the EUR rate today?", "sessionId": "optional"}</pre>
    Response:
    <pre>{"sessionId": "...", "reply": "...", "toolUsed": "currency_rates"}</pre>
  </li>
  <li><span class="method get">GET</span> <code>/chat/history/{sessionID}</code> — session transcript.</li>
  <li><span class="method delete">DELETE</span> <code>/chat/history/{sessionID}</code> — clear a session.</li>
  <li><span class="method get">GET</span> <code>/chat/sessions</code> — list active sessions.</li>
  <li><span class="method get">GET</span> <code>/currency-rates?valcode=USD&amp;date=20250804</code> — direct NBU lookup.</li>
  <li><span class="method post">POST</span> <code>/test-tool?valcode=USD</code> — run the currency tool directly.</li>
</ul>
<p>Session continuity: send the returned <code>sessionId</code> in the request
body, the <code>X-Session-Id</code> header, or rely on the session cookie.</p>
</body>
</html>`

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsHTML))
}
