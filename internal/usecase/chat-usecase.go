package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iamvkosarev/ye-chat/internal/model"
	"go.uber.org/zap"
)

var (
	ErrGeneration = errors.New("generation failed")
)

// GenerationError carries the service failure of a single submission.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrGeneration, e.Err)
}

// Notice is the text shown to the user when a submission fails.
func (e *GenerationError) Notice() string {
	return fmt.Sprintf("An error occurred: %s", e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGeneration, e.Err}
}

type TranscriptStorage interface {
	GetTranscript(ctx context.Context, sessionKey string) (model.Transcript, error)
	CreateTranscript(ctx context.Context, transcript model.Transcript) (model.Transcript, error)
	AppendMessage(ctx context.Context, sessionKey string, message model.Message) (model.Transcript, error)
	DeleteTranscript(ctx context.Context, sessionKey string) error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ChatUsecaseDeps struct {
	TranscriptStorage TranscriptStorage
	Generator         Generator
	Logger            *zap.Logger
}

// ChatUsecase mediates between a chat surface, the session transcript and
// the generation service. It holds no per-session state of its own.
type ChatUsecase struct {
	ChatUsecaseDeps
	persona model.Persona
}

func NewChatUsecase(deps ChatUsecaseDeps, persona model.Persona) *ChatUsecase {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ChatUsecase{
		ChatUsecaseDeps: deps,
		persona:         persona,
	}
}

func (c *ChatUsecase) Persona() model.Persona {
	return c.persona
}

// Initialize returns the session transcript, creating it with the greeting
// if the session has none yet.
func (c *ChatUsecase) Initialize(ctx context.Context, sessionKey string) (model.Transcript, error) {
	transcript, err := c.TranscriptStorage.GetTranscript(ctx, sessionKey)
	if err == nil {
		return transcript, nil
	}
	if !errors.Is(err, model.ErrTranscriptDoesNotExist) {
		return model.Transcript{}, fmt.Errorf("failed to get transcript: %w", err)
	}
	transcript, err = c.TranscriptStorage.CreateTranscript(ctx, model.NewTranscript(sessionKey, c.persona))
	if err != nil {
		if errors.Is(err, model.ErrTranscriptAlreadyExists) {
			return transcript, nil
		}
		return model.Transcript{}, fmt.Errorf("failed to create transcript: %w", err)
	}
	c.Logger.Debug("session initialized", zap.String("session", sessionKey), zap.Stringer("transcript", transcript.ID))
	return transcript, nil
}

// Submit appends the user turn, asks the generator once and appends the reply.
// On a generation failure the returned transcript holds the user turn only and
// the error is a *GenerationError. Blank input is a no-op: it neither adds a
// turn nor creates the session.
func (c *ChatUsecase) Submit(ctx context.Context, sessionKey, userText string) (model.Transcript, error) {
	if strings.TrimSpace(userText) == "" {
		transcript, err := c.TranscriptStorage.GetTranscript(ctx, sessionKey)
		if err != nil && !errors.Is(err, model.ErrTranscriptDoesNotExist) {
			return model.Transcript{}, fmt.Errorf("failed to get transcript: %w", err)
		}
		return transcript, nil
	}

	transcript, err := c.Initialize(ctx, sessionKey)
	if err != nil {
		return model.Transcript{}, err
	}

	transcript, err = c.TranscriptStorage.AppendMessage(
		ctx, sessionKey, model.Message{
			Role:    model.MessageRoleUser,
			Content: userText,
		},
	)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("failed to add user message: %w", err)
	}

	answer, err := c.Generator.Generate(ctx, c.persona.Prompt(userText))
	if err != nil {
		c.Logger.Warn("generation failed", zap.String("session", sessionKey), zap.Error(err))
		return transcript, &GenerationError{Err: err}
	}

	transcript, err = c.TranscriptStorage.AppendMessage(
		ctx, sessionKey, model.Message{
			Role:    model.MessageRoleAssistant,
			Content: answer,
		},
	)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("failed to add assistant message: %w", err)
	}
	return transcript, nil
}

// Reset ends the current session and starts a fresh one.
func (c *ChatUsecase) Reset(ctx context.Context, sessionKey string) (model.Transcript, error) {
	if err := c.TranscriptStorage.DeleteTranscript(ctx, sessionKey); err != nil {
		return model.Transcript{}, fmt.Errorf("failed to delete transcript: %w", err)
	}
	return c.Initialize(ctx, sessionKey)
}
