package types

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	ToolUsed  string `json:"toolUsed,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionInfo is a listing entry for an active chat session.
type SessionInfo struct {
	SessionID    string `json:"sessionId"`
	MessageCount int    `json:"messageCount"`
	LastMessage  string `json:"lastMessage,omitempty"`
}

type SessionListResponse struct {
	ActiveSessions int           `json:"activeSessions"`
	Sessions       []SessionInfo `json:"sessions"`
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type HistoryResponse struct {
	SessionID    string           `json:"sessionId"`
	History      []HistoryMessage `json:"history"`
	MessageCount int              `json:"messageCount"`
}
