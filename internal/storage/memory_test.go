package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"babyzen/internal/model"
	"babyzen/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryUsageConcurrentIncrements(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewMemoryStore()

	_, created, err := s.EnsureUsage(ctx, "user-1", "2026-10-17")
	req.NoError(err)
	req.True(created)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementUsage(ctx, "user-1", "2026-10-17")
		}()
	}
	wg.Wait()

	c, created, err := s.EnsureUsage(ctx, "user-1", "2026-10-17")
	req.NoError(err)
	req.False(created)
	req.Equal(50, c.ScanCount)
}

func TestMemoryChatScoping(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.LatestSession(ctx, "user-1")
	req.ErrorIs(err, repository.ErrNotFound)

	sess, err := s.CreateSession(ctx, "user-1")
	req.NoError(err)

	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	for i, content := range []string{"a", "b", "c"} {
		req.NoError(s.InsertMessage(ctx, "user-1", &model.ChatMessage{
			ID: uuid.New(), SessionID: sess.ID, Role: model.RoleUser, Content: content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	req.ErrorIs(s.InsertMessage(ctx, "user-2", &model.ChatMessage{ID: uuid.New(), SessionID: sess.ID}), repository.ErrNotFound)

	msgs, err := s.ListMessages(ctx, "user-1", sess.ID, 2)
	req.NoError(err)
	req.Equal([]string{"b", "c"}, []string{msgs[0].Content, msgs[1].Content})

	msgs, err = s.ListMessages(ctx, "user-2", sess.ID, 2)
	req.NoError(err)
	req.Empty(msgs)
}

func TestMemoryCriesNewestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	c := model.CryClassification{DetectedType: model.CryGas}
	req.NoError(s.InsertCry(ctx, model.NewCry("user-1", c, "", "en", false, base)))
	c.DetectedType = model.CryBurp
	req.NoError(s.InsertCry(ctx, model.NewCry("user-1", c, "", "en", false, base.Add(time.Hour))))
	req.NoError(s.InsertCry(ctx, model.NewCry("user-2", c, "", "en", false, base)))

	cries, err := s.ListCries(ctx, "user-1", 1)
	req.NoError(err)
	req.Len(cries, 1)
	req.Equal(model.CryBurp, cries[0].Type)
}
