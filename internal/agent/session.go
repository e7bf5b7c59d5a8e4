package agent

import (
	"github.com/google/uuid"

	"github.com/mattgly/sage/internal/conversation"
)

// Session binds a profile to its conversation history. One session exists
// per profile per process; switching profiles and back resumes where the
// conversation left off.
type Session struct {
	ID      string
	Profile string
	History *conversation.History
}

// NewSession creates an empty session for a profile.
func NewSession(profile string) *Session {
	return &Session{
		ID:      uuid.New().String(),
		Profile: profile,
		History: conversation.NewHistory(),
	}
}

// Clear resets the session's conversation history.
func (s *Session) Clear() {
	s.History.Clear()
}
