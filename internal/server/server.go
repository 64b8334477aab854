package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"currency-agent-backend/internal/agent"
	"currency-agent-backend/internal/config"
	"currency-agent-backend/internal/db"
	"currency-agent-backend/internal/guard"
	"currency-agent-backend/internal/nbu"
	"currency-agent-backend/internal/store"
	"currency-agent-backend/internal/types"
)

// blockedReply is returned verbatim when the guard rejects a message; the
// input never reaches the model.
const blockedReply = "I can only help with currency exchange rates from the National Bank of Ukraine. Please ask about currency rates without trying to change my behavior."

const chatTimeout = 60 * time.Second

type Server struct {
	router        *chi.Mux
	store         *store.MemoryStore
	files         *store.FileHistoryStore
	database      *db.DB
	databaseStore *store.DatabaseStore
	agent         *agent.Service
	rates         *nbu.Client
	cfg           config.Config
}

func NewServer(cfg config.Config) (*Server, error) {
	client := openai.NewClient(cfg.OpenAIAPIKey)
	rates := nbu.NewClient(cfg.NBUBaseURL)

	spec, err := agent.LoadSpec(cfg.AgentPromptFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router: r,
		store:  store.NewMemoryStore(cfg.MaxHistoryMessages),
		agent:  agent.NewService(client, rates, spec, cfg.Model),
		rates:  rates,
		cfg:    cfg,
	}

	if cfg.DatabaseURL != "" {
		database, err := db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.RunMigrations("./migrations"); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Println("database connection established")
		s.database = database
		s.databaseStore = store.NewDatabaseStore(database)
	} else {
		log.Println("DB_URL not provided, persisting sessions to", cfg.SessionDataDir)
		s.files = store.NewFileHistoryStore(cfg.SessionDataDir)
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/docs", s.handleDocs)
	s.router.Post("/chat", s.handleChat)
	s.router.Get("/chat/history/{sessionID}", s.handleGetHistory)
	s.router.Delete("/chat/history/{sessionID}", s.handleClearHistory)
	s.router.Get("/chat/sessions", s.handleListSessions)
	s.router.Get("/currency-rates", s.handleCurrencyRates)
	s.router.Post("/test-tool", s.handleTestTool)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases server resources (database connection, if any).
func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":           "ok",
		"apiKeyConfigured": s.cfg.OpenAIAPIKey != "",
	}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			resp["database"] = "error"
		} else {
			resp["database"] = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(r, w, req.SessionID)
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.cfg.OpenAIAPIKey == "" {
		log.Println("[chat] rejected request: OPENAI_API_KEY is not configured")
		s.writeError(w, http.StatusServiceUnavailable, "OPENAI_API_KEY is not configured")
		return
	}

	safe, sanitized, detected := guard.Validate(req.Message)
	if len(detected) > 0 {
		log.Printf("[guard] %d suspicious pattern(s) in session %s", len(detected), sid)
	}
	if !safe {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Session-Id", sid)
		_ = json.NewEncoder(w).Encode(types.ChatResponse{SessionID: sid, Reply: blockedReply})
		return
	}

	history := s.loadHistory(sid)

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()
	result, err := s.agent.Process(ctx, convertMessages(history), sanitized)
	if err != nil {
		log.Printf("[chat] agent error for session %s: %v", sid, err)
		s.writeError(w, http.StatusBadGateway, "I'm having trouble answering right now. Please try again.")
		return
	}

	if result.ToolUsed == "" && agent.DetectCurrencyIntent(req.Message) {
		log.Printf("[chat] currency-like message answered without tool in session %s", sid)
	}

	// History keeps the original message so the user sees what they sent;
	// the model saw the sanitized version.
	s.appendTurn(sid, store.Message{Role: openai.ChatMessageRoleUser, Content: req.Message})
	s.appendTurn(sid, store.Message{Role: openai.ChatMessageRoleAssistant, Content: result.Reply})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Session-Id", sid)
	_ = json.NewEncoder(w).Encode(types.ChatResponse{
		SessionID: sid,
		Reply:     result.Reply,
		ToolUsed:  result.ToolUsed,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sessionID")
	msgs := s.loadHistory(sid)
	if len(msgs) == 0 && !s.store.Has(sid) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	out := make([]types.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, types.HistoryMessage{Role: m.Role, Content: m.Content})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.HistoryResponse{
		SessionID:    sid,
		History:      out,
		MessageCount: len(out),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sessionID")
	existed := s.store.Delete(sid)
	if s.databaseStore != nil {
		if msgs, err := s.databaseStore.GetHistory(sid, 1); err == nil && len(msgs) > 0 {
			existed = true
		}
		if err := s.databaseStore.ClearHistory(sid); err != nil {
			log.Printf("[history] failed to clear db history for %s: %v", sid, err)
		}
	}
	if s.files != nil {
		if msgs, err := s.files.Read(sid); err == nil && len(msgs) > 0 {
			existed = true
		}
		if err := s.files.Clear(sid); err != nil {
			log.Printf("[history] failed to clear file history for %s: %v", sid, err)
		}
	}
	if !existed {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "session " + sid + " cleared"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.Sessions()
	out := make([]types.SessionInfo, 0, len(summaries))
	for _, sm := range summaries {
		out = append(out, types.SessionInfo{
			SessionID:    sm.SessionID,
			MessageCount: sm.MessageCount,
			LastMessage:  sm.LastMessage,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(types.SessionListResponse{
		ActiveSessions: len(out),
		Sessions:       out,
	})
}

func (s *Server) handleCurrencyRates(w http.ResponseWriter, r *http.Request) {
	valcode := r.URL.Query().Get("valcode")
	if valcode == "" {
		valcode = "USD"
	}
	date := r.URL.Query().Get("date")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	rates, err := s.rates.FetchRates(ctx, valcode, date)
	if err != nil {
		var apiErr *nbu.APIError
		if errors.As(err, &apiErr) {
			s.writeError(w, http.StatusServiceUnavailable, apiErr.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	respDate := ""
	if len(rates) > 0 {
		respDate = rates[0].ExchangeDate
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"rates":  rates,
		"date":   respDate,
		"source": "National Bank of Ukraine",
	})
}

func (s *Server) handleTestTool(w http.ResponseWriter, r *http.Request) {
	valcode := r.URL.Query().Get("valcode")
	if valcode == "" {
		valcode = "USD"
	}
	args, _ := json.Marshal(map[string]string{"valcode": valcode})

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	out := s.agent.RunToolDirect(ctx, string(args))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"toolResult": out,
		"success":    !strings.HasPrefix(out, "Error"),
	})
}

// loadHistory returns the session transcript, seeding the in-memory store
// from the persistence layer on a cold start.
func (s *Server) loadHistory(sid string) []store.Message {
	if s.store.Has(sid) {
		return s.store.Get(sid)
	}
	var msgs []store.Message
	if s.databaseStore != nil {
		loaded, err := s.databaseStore.GetHistory(sid, s.cfg.MaxHistoryMessages)
		if err != nil {
			log.Printf("[history] failed to load db history for %s: %v", sid, err)
		} else {
			msgs = loaded
		}
	} else if s.files != nil {
		loaded, err := s.files.Read(sid)
		if err != nil {
			log.Printf("[history] failed to load file history for %s: %v", sid, err)
		} else {
			msgs = loaded
		}
	}
	if len(msgs) > 0 {
		s.store.Set(sid, msgs)
	}
	return msgs
}

// appendTurn records a message in memory and in the persistence layer.
func (s *Server) appendTurn(sid string, msg store.Message) {
	s.store.Append(sid, msg)
	if s.databaseStore != nil {
		if err := s.databaseStore.AppendMessage(sid, msg.Role, msg.Content); err != nil {
			log.Printf("[history] failed to persist message for %s: %v", sid, err)
		}
		return
	}
	if s.files != nil {
		if err := s.files.Write(sid, s.store.Get(sid)); err != nil {
			log.Printf("[history] failed to persist session %s: %v", sid, err)
		}
	}
}

func convertMessages(msgs []store.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return uuid.NewString()
}

// getSessionID retrieves the session ID from cookie, header, body or query.
func getSessionID(r *http.Request, bodySessionID string) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if bodySessionID != "" {
		return bodySessionID
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or mints a new one,
// setting the cookie either way so the browser keeps it.
func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter, bodySessionID string) string {
	sid := getSessionID(r, bodySessionID)
	if sid == "" {
		sid = newSessionID()
		log.Printf("[session] creating new session: %s for endpoint: %s", sid, r.URL.Path)
	}
	SetSessionCookie(w, sid)
	return sid
}
