package in_memory

import (
	"context"
	"sync"

	"github.com/iamvkosarev/ye-chat/internal/model"
)

type TranscriptStorage struct {
	mu          sync.RWMutex
	transcripts map[string]*model.Transcript
}

func NewTranscriptStorage() *TranscriptStorage {
	return &TranscriptStorage{
		transcripts: make(map[string]*model.Transcript),
	}
}

func (s *TranscriptStorage) GetTranscript(_ context.Context, sessionKey string) (model.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transcript, ok := s.transcripts[sessionKey]
	if !ok {
		return model.Transcript{}, model.ErrTranscriptDoesNotExist
	}
	return copyTranscript(transcript), nil
}

func (s *TranscriptStorage) CreateTranscript(_ context.Context, transcript model.Transcript) (model.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.transcripts[transcript.SessionKey]; ok {
		return copyTranscript(existing), model.ErrTranscriptAlreadyExists
	}
	stored := copyTranscript(&transcript)
	s.transcripts[transcript.SessionKey] = &stored
	return copyTranscript(&stored), nil
}

func (s *TranscriptStorage) AppendMessage(
	_ context.Context,
	sessionKey string,
	message model.Message,
) (model.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transcript, ok := s.transcripts[sessionKey]
	if !ok {
		return model.Transcript{}, model.ErrTranscriptDoesNotExist
	}
	transcript.Messages = append(transcript.Messages, message)
	return copyTranscript(transcript), nil
}

func (s *TranscriptStorage) DeleteTranscript(_ context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, sessionKey)
	return nil
}

func copyTranscript(t *model.Transcript) model.Transcript {
	c := *t
	c.Messages = make([]model.Message, len(t.Messages))
	copy(c.Messages, t.Messages)
	return c
}
