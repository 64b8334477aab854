package store

import (
	"sort"
	"sync"
	"time"
)

type Message struct {
	Role    string
	Content string
}

// MemoryStore keeps per-session chat transcripts in memory, capped at
// maxMessages per session so long-lived sessions do not grow unbounded.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string][]Message
	touched     map[string]time.Time
	maxMessages int
}

func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string][]Message),
		touched:     make(map[string]time.Time),
		maxMessages: maxMessages,
	}
}

func (m *MemoryStore) Append(sessionID string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	m.touched[sessionID] = time.Now()
	m.trimLocked(sessionID)
}

func (m *MemoryStore) Get(sessionID string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.sessions[sessionID]
	copyMsgs := make([]Message, len(msgs))
	copy(copyMsgs, msgs)
	return copyMsgs
}

func (m *MemoryStore) Set(sessionID string, msgs []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append([]Message(nil), msgs...)
	m.touched[sessionID] = time.Now()
	m.trimLocked(sessionID)
}

// Has reports whether the session exists in memory.
func (m *MemoryStore) Has(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// Delete removes a session and reports whether it existed.
func (m *MemoryStore) Delete(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	delete(m.touched, sessionID)
	return ok
}

// SessionSummary describes one active session for listing endpoints.
type SessionSummary struct {
	SessionID    string
	MessageCount int
	LastMessage  string
	TouchedAt    time.Time
}

// Sessions lists active sessions, most recently touched first.
func (m *MemoryStore) Sessions() []SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SessionSummary, 0, len(m.sessions))
	for id, msgs := range m.sessions {
		s := SessionSummary{SessionID: id, MessageCount: len(msgs), TouchedAt: m.touched[id]}
		if len(msgs) > 0 {
			s.LastMessage = preview(msgs[len(msgs)-1].Content)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TouchedAt.After(out[j].TouchedAt) })
	return out
}

func (m *MemoryStore) trimLocked(sessionID string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.sessions[sessionID]
	if len(msgs) > m.maxMessages {
		m.sessions[sessionID] = msgs[len(msgs)-m.maxMessages:]
	}
}

const previewLen = 100

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLen {
		return s
	}
	return string(runes[:previewLen]) + "..."
}
