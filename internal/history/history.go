package history

import (
	"sync"

	"groq-chatter/internal/llm"
)

type session struct {
	turns     []llm.Message
	aiEnabled bool
}

// Manager owns per-chat conversation history and the per-chat AI toggle.
// History never holds more than limit turns; the oldest are dropped first.
type Manager struct {
	mu       sync.RWMutex
	limit    int
	sessions map[int64]*session

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = 1
	}
	return &Manager{
		limit:    limit,
		sessions: make(map[int64]*session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) Limit() int { return m.limit }

// getOrCreate must be called with mu held for writing.
func (m *Manager) getOrCreate(chatID int64) *session {
	s, ok := m.sessions[chatID]
	if !ok {
		s = &session{}
		m.sessions[chatID] = s
	}
	return s
}

func (m *Manager) IsAIEnabled(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return ok && s.aiEnabled
}

func (m *Manager) EnableAI(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(chatID).aiEnabled = true
}

func (m *Manager) DisableAI(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		s.aiEnabled = false
	}
}

// EnableAIIfDisabled turns AI on and reports whether it was off before.
func (m *Manager) EnableAIIfDisabled(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getOrCreate(chatID)
	if s.aiEnabled {
		return false
	}
	s.aiEnabled = true
	return true
}

func (m *Manager) AppendUser(chatID int64, content string) {
	m.append(chatID, llm.Message{Role: llm.RoleUser, Content: content})
}

func (m *Manager) AppendAssistant(chatID int64, content string) {
	m.append(chatID, llm.Message{Role: llm.RoleAssistant, Content: content})
}

func (m *Manager) append(chatID int64, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getOrCreate(chatID)
	s.turns = append(s.turns, msg)
	if over := len(s.turns) - m.limit; over > 0 {
		// copy into a fresh slice so the dropped prefix can be collected
		kept := make([]llm.Message, m.limit)
		copy(kept, s.turns[over:])
		s.turns = kept
	}
}

// PopLast removes the most recent turn. It is a no-op on empty history.
func (m *Manager) PopLast(chatID int64) (llm.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok || len(s.turns) == 0 {
		return llm.Message{}, false
	}
	last := s.turns[len(s.turns)-1]
	s.turns = s.turns[:len(s.turns)-1]
	return last, true
}

// Restore replaces the chat history with a copy of turns, keeping at most
// limit of the newest. It undoes an append that evicted an older turn.
func (m *Manager) Restore(chatID int64, turns []llm.Message) {
	if over := len(turns) - m.limit; over > 0 {
		turns = turns[over:]
	}
	kept := make([]llm.Message, len(turns))
	copy(kept, turns)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(chatID).turns = kept
}

// Clear empties the history and leaves the AI flag as it was.
func (m *Manager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		s.turns = nil
	}
}

func (m *Manager) Len(chatID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[chatID]; ok {
		return len(s.turns)
	}
	return 0
}

// Get returns a copy of the chat history, oldest first.
func (m *Manager) Get(chatID int64) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil
	}
	out := make([]llm.Message, len(s.turns))
	copy(out, s.turns)
	return out
}

// Chats returns the number of chats the manager has seen.
func (m *Manager) Chats() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock serializes a multi-step mutation of one chat. Other chats are not
// blocked. The returned func releases the lock.
func (m *Manager) Lock(chatID int64) (unlock func()) {
	m.locksMu.Lock()
	l, ok := m.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[chatID] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}
