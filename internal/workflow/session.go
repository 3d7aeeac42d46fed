package workflow

import (
	"context"
	"sync"
	"time"

	"investment-bot/internal/monitoring"
	"investment-bot/internal/services"
)

// Step is a suspension point of the submission workflow. The zero value
// means no investment is in progress.
type Step string

const (
	StepIdle                 Step = ""
	StepAwaitingAmount       Step = "awaiting_amount"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepAwaitingTerms        Step = "awaiting_terms"
	StepAwaitingPayment      Step = "awaiting_payment"
	StepAwaitingEvidence     Step = "awaiting_evidence"
)

// Session is the per-user conversational state
type Session struct {
	ID                string          `json:"id"`
	UserID            int64           `json:"user_id"`
	Step              Step            `json:"step"`
	Quote             *services.Quote `json:"quote,omitempty"`
	TermsAccepted     bool            `json:"terms_accepted"`
	PendingReferrerID *int64          `json:"pending_referrer_id,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Active reports whether an investment submission is in progress
func (s *Session) Active() bool {
	return s.Step != StepIdle
}

func (s *Session) clone() *Session {
	c := *s
	if s.Quote != nil {
		q := *s.Quote
		c.Quote = &q
	}
	if s.PendingReferrerID != nil {
		id := *s.PendingReferrerID
		c.PendingReferrerID = &id
	}
	return &c
}

// Store keeps sessions keyed by user id. Load returns nil when the user
// has no session.
type Store interface {
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

func (m *MemoryStore) Load(ctx context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = session.clone()
	monitoring.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	monitoring.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions not touched since cutoff and returns how many
func (m *MemoryStore) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	monitoring.ActiveSessions.Set(float64(len(m.sessions)))
	return removed
}
