package telegram

import "sync"

// Session tracks where a chat is in the upgrade flow.
type Session struct {
	SelectedPlan   string
	PendingOrderID string
	DiscountCode   string
}

type StateManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStateManager() *StateManager {
	return &StateManager{
		sessions: make(map[int64]*Session),
	}
}

func (m *StateManager) Get(chatID int64) *Session {
	m.mu.RLock()
	session, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if ok {
		return session
	}
	return &Session{}
}

func (m *StateManager) Set(chatID int64, session *Session) {
	m.mu.Lock()
	m.sessions[chatID] = session
	m.mu.Unlock()
}

func (m *StateManager) Reset(chatID int64) {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
}
