package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      = MessageRole("user")
	MessageRoleAssistant = MessageRole("assistant")
)

type Message struct {
	Role    MessageRole
	Content string
}

// Transcript is the ordered, append-only list of turns of one chat session.
type Transcript struct {
	ID         uuid.UUID
	SessionKey string
	Messages   []Message
	CreatedAt  time.Time
}

// NewTranscript starts a session with the persona greeting as its only turn.
func NewTranscript(sessionKey string, persona Persona) Transcript {
	return Transcript{
		ID:         uuid.New(),
		SessionKey: sessionKey,
		Messages: []Message{
			{
				Role:    MessageRoleAssistant,
				Content: persona.Greeting,
			},
		},
		CreatedAt: time.Now(),
	}
}

func (t Transcript) Len() int {
	return len(t.Messages)
}

func (t Transcript) Last() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}
