package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ye-chat/internal/model"
	"github.com/redis/go-redis/v9"
)

const maxAppendAttempts = 10

var (
	ErrAppendConflict = errors.New("too many concurrent appends")
)

type messageInternal struct {
	Role    model.MessageRole `json:"role"`
	Content string            `json:"content"`
}

type transcriptInternal struct {
	ID         string            `json:"id"`
	SessionKey string            `json:"session_key"`
	Messages   []messageInternal `json:"messages"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TranscriptStorage keeps one JSON document per session. Every write refreshes
// the TTL, so a transcript lives exactly as long as its session stays active.
type TranscriptStorage struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTranscriptStorage(rdb *redis.Client, ttl time.Duration) *TranscriptStorage {
	return &TranscriptStorage{
		rdb: rdb,
		ttl: ttl,
	}
}

func (s *TranscriptStorage) GetTranscript(ctx context.Context, sessionKey string) (model.Transcript, error) {
	transcriptInt, err := getTranscriptInt(ctx, s.rdb, getTranscriptKey(sessionKey))
	if err != nil {
		return model.Transcript{}, err
	}
	return fromInternal(transcriptInt)
}

func (s *TranscriptStorage) CreateTranscript(ctx context.Context, transcript model.Transcript) (model.Transcript, error) {
	transcriptJSON, err := json.Marshal(toInternal(transcript))
	if err != nil {
		return model.Transcript{}, fmt.Errorf("failed to marshal internal transcript: %w", err)
	}
	key := getTranscriptKey(transcript.SessionKey)
	created, err := s.rdb.SetNX(ctx, key, transcriptJSON, s.ttl).Result()
	if err != nil {
		return model.Transcript{}, fmt.Errorf("failed to save transcript %s: %w", key, err)
	}
	if !created {
		existing, err := s.GetTranscript(ctx, transcript.SessionKey)
		if err != nil {
			return model.Transcript{}, err
		}
		return existing, model.ErrTranscriptAlreadyExists
	}
	return transcript, nil
}

// AppendMessage rewrites the session document under WATCH, so a concurrent
// append to the same session makes one of the transactions start over.
func (s *TranscriptStorage) AppendMessage(
	ctx context.Context,
	sessionKey string,
	message model.Message,
) (model.Transcript, error) {
	key := getTranscriptKey(sessionKey)
	var transcriptInt transcriptInternal
	appendFn := func(tx *redis.Tx) error {
		var err error
		transcriptInt, err = getTranscriptInt(ctx, tx, key)
		if err != nil {
			return err
		}
		transcriptInt.Messages = append(
			transcriptInt.Messages, messageInternal{
				Role:    message.Role,
				Content: message.Content,
			},
		)
		transcriptJSON, err := json.Marshal(transcriptInt)
		if err != nil {
			return fmt.Errorf("failed to marshal internal transcript: %w", err)
		}
		_, err = tx.TxPipelined(
			ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, transcriptJSON, s.ttl)
				return nil
			},
		)
		return err
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err := s.rdb.Watch(ctx, appendFn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, model.ErrTranscriptDoesNotExist) {
				return model.Transcript{}, err
			}
			return model.Transcript{}, fmt.Errorf("failed to append to transcript %s: %w", key, err)
		}
		return fromInternal(transcriptInt)
	}
	return model.Transcript{}, fmt.Errorf("failed to append to transcript %s: %w", key, ErrAppendConflict)
}

func (s *TranscriptStorage) DeleteTranscript(ctx context.Context, sessionKey string) error {
	if err := s.rdb.Del(ctx, getTranscriptKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete transcript %s: %w", sessionKey, err)
	}
	return nil
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getTranscriptInt(ctx context.Context, rdb stringGetter, key string) (transcriptInternal, error) {
	raw, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return transcriptInternal{}, model.ErrTranscriptDoesNotExist
		}
		return transcriptInternal{}, fmt.Errorf("failed to get transcript %s: %w", key, err)
	}
	var transcriptInt transcriptInternal
	if err = json.Unmarshal([]byte(raw), &transcriptInt); err != nil {
		return transcriptInternal{}, fmt.Errorf("failed to unmarshal transcript %s: %w", key, err)
	}
	return transcriptInt, nil
}

func toInternal(t model.Transcript) transcriptInternal {
	messages := make([]messageInternal, 0, len(t.Messages))
	for _, msg := range t.Messages {
		messages = append(
			messages, messageInternal{
				Role:    msg.Role,
				Content: msg.Content,
			},
		)
	}
	return transcriptInternal{
		ID:         t.ID.String(),
		SessionKey: t.SessionKey,
		Messages:   messages,
		CreatedAt:  t.CreatedAt,
	}
}

func fromInternal(t transcriptInternal) (model.Transcript, error) {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return model.Transcript{}, fmt.Errorf("failed to parse transcript id %s: %w", t.ID, err)
	}
	messages := make([]model.Message, 0, len(t.Messages))
	for _, msg := range t.Messages {
		messages = append(
			messages, model.Message{
				Role:    msg.Role,
				Content: msg.Content,
			},
		)
	}
	return model.Transcript{
		ID:         id,
		SessionKey: t.SessionKey,
		Messages:   messages,
		CreatedAt:  t.CreatedAt,
	}, nil
}

func getTranscriptKey(sessionKey string) string {
	return fmt.Sprintf("transcript_%s", sessionKey)
}
