package model

import (
	"sync"
	"time"
)

// MessageRole distinguishes who produced a thread entry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in a conversation thread. The thread is intentionally
// opaque outside this package: callers append and read, they never splice.
type Message struct {
	Role      MessageRole
	Content   string
	Timestamp time.Time
}

// ConversationThread is the ordered history of a session, in transport
// delivery order.
type ConversationThread []Message

// Append adds a message to the end of the thread.
func (t *ConversationThread) Append(role MessageRole, content string, at time.Time) {
	*t = append(*t, Message{Role: role, Content: content, Timestamp: at})
}

// ConversationSession is per-user persistent state held by the session
// store. The embedded mutex serializes turns for this session: one
// turn executes at a time per session, enforced by a per-session lock.
type ConversationSession struct {
	mu sync.Mutex

	ID             string
	CreatedAt      time.Time
	LastActivity   time.Time
	Status         SessionStatus
	CollectedData  PartialLoanApplication
	Completion     int
	Thread         ConversationThread
	ErrorDetail    string // present iff Status == StatusError
	Application    *LoanApplication // set once CollectedData finalizes
	Assessments    map[Phase]*SpecialistAssessment
}

// NewConversationSession creates a fresh session in the collecting state.
func NewConversationSession(id string, now time.Time) *ConversationSession {
	return &ConversationSession{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		Status:       StatusCollecting,
		Assessments:  make(map[Phase]*SpecialistAssessment),
	}
}

// Lock/Unlock serialize one turn at a time for this session. Callers must
// never hold the lock across a suspending operation other than the turn
// itself.
func (s *ConversationSession) Lock()   { s.mu.Lock() }
func (s *ConversationSession) Unlock() { s.mu.Unlock() }

// Touch advances last-activity. It does not change Completion; callers set
// that field themselves.
func (s *ConversationSession) Touch(now time.Time) {
	s.LastActivity = now
}

// MarkError transitions the session into the error state with the given
// detail, preserving the session so the client may retry.
func (s *ConversationSession) MarkError(detail string) {
	s.Status = StatusError
	s.ErrorDetail = detail
}

// Snapshot is the read-only view returned by the session admin endpoints;
// it never exposes the lock or the raw thread.
type Snapshot struct {
	SessionID     string                 `json:"session_id"`
	Status        SessionStatus          `json:"status"`
	Completion    int                    `json:"completion_percentage"`
	CollectedData PartialLoanApplication `json:"collected_data"`
	CreatedAt     time.Time              `json:"created_at"`
	LastActivity  time.Time              `json:"last_activity"`
	Error         string                 `json:"error,omitempty"`
}

// ToSnapshot builds the admin-facing view of a session. Caller must hold the
// session lock, or otherwise guarantee exclusive access, before calling.
func (s *ConversationSession) ToSnapshot() Snapshot {
	return Snapshot{
		SessionID:     s.ID,
		Status:        s.Status,
		Completion:    s.Completion,
		CollectedData: s.CollectedData,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity,
		Error:         s.ErrorDetail,
	}
}
