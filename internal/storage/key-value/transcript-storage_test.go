package key_value

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/iamvkosarev/ye-chat/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = time.Hour

func newTestStorage(t *testing.T) (*TranscriptStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTranscriptStorage(rdb, testTTL), mr
}

func TestTranscriptStorage(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	_, err := s.GetTranscript(ctx, "tg_1")
	assert.ErrorIs(t, err, model.ErrTranscriptDoesNotExist)

	_, err = s.AppendMessage(ctx, "tg_1", model.Message{Role: model.MessageRoleUser, Content: "hi"})
	assert.ErrorIs(t, err, model.ErrTranscriptDoesNotExist)

	created, err := s.CreateTranscript(ctx, model.NewTranscript("tg_1", model.Ye))
	require.NoError(t, err)
	assert.Equal(t, 1, created.Len())
	assert.Equal(t, testTTL, mr.TTL(getTranscriptKey("tg_1")))

	again, err := s.CreateTranscript(ctx, model.NewTranscript("tg_1", model.Ye))
	assert.ErrorIs(t, err, model.ErrTranscriptAlreadyExists)
	assert.Equal(t, created.ID, again.ID)

	_, err = s.AppendMessage(ctx, "tg_1", model.Message{Role: model.MessageRoleUser, Content: "hi"})
	require.NoError(t, err)
	updated, err := s.AppendMessage(ctx, "tg_1", model.Message{Role: model.MessageRoleAssistant, Content: "yo"})
	require.NoError(t, err)
	assert.Equal(t, []model.Message{
		{Role: model.MessageRoleAssistant, Content: model.Ye.Greeting},
		{Role: model.MessageRoleUser, Content: "hi"},
		{Role: model.MessageRoleAssistant, Content: "yo"},
	}, updated.Messages)

	got, err := s.GetTranscript(ctx, "tg_1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, updated.Messages, got.Messages)

	require.NoError(t, s.DeleteTranscript(ctx, "tg_1"))
	_, err = s.GetTranscript(ctx, "tg_1")
	assert.ErrorIs(t, err, model.ErrTranscriptDoesNotExist)
}

func TestTranscriptStorage_AppendRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)
	key := getTranscriptKey("web_a")

	_, err := s.CreateTranscript(ctx, model.NewTranscript("web_a", model.Ye))
	require.NoError(t, err)

	mr.FastForward(testTTL - time.Minute)
	assert.Equal(t, time.Minute, mr.TTL(key))

	_, err = s.AppendMessage(ctx, "web_a", model.Message{Role: model.MessageRoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, testTTL, mr.TTL(key))
}

func TestTranscriptStorage_ExpiresWithSession(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStorage(t)

	_, err := s.CreateTranscript(ctx, model.NewTranscript("web_a", model.Ye))
	require.NoError(t, err)

	mr.FastForward(testTTL + time.Second)
	_, err = s.GetTranscript(ctx, "web_a")
	assert.ErrorIs(t, err, model.ErrTranscriptDoesNotExist)
}

func TestTranscriptStorage_ConcurrentAppendsKeepEveryTurn(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	_, err := s.CreateTranscript(ctx, model.NewTranscript("web_a", model.Ye))
	require.NoError(t, err)

	const writers, perWriter = 3, 3
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.AppendMessage(
					ctx, "web_a", model.Message{Role: model.MessageRoleUser, Content: fmt.Sprintf("%d-%d", w, i)},
				)
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetTranscript(ctx, "web_a")
	require.NoError(t, err)
	assert.Equal(t, 1+writers*perWriter, got.Len())
}

func TestInternalRoundTrip(t *testing.T) {
	tr := model.NewTranscript("tg_42", model.Ye)
	tr.CreatedAt = tr.CreatedAt.Truncate(time.Second).UTC()
	tr.Messages = append(tr.Messages, model.Message{Role: model.MessageRoleUser, Content: "Hi"})

	got, err := fromInternal(toInternal(tr))
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestFromInternal_BadID(t *testing.T) {
	_, err := fromInternal(transcriptInternal{ID: "not-a-uuid"})
	assert.Error(t, err)
}
