// agent-web serves the chat frontend: a single page that talks to the
// backend chat API and renders replies as-is.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	port := getEnvDefault("PORT", "8501")
	backendURL := strings.TrimRight(getEnvDefault("BACKEND_URL", "http://localhost:8000"), "/")

	page := strings.ReplaceAll(indexHTML, "{{BACKEND_URL}}", backendURL)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})

	addr := ":" + port
	fmt.Printf("agent web frontend listening on %s (backend %s)\n", addr, backendURL)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
