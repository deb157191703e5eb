// Package history builds the sliding context window of a chat from its two
// independently stored streams of user and assistant turns.
package history

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/db"
)

// Turn is one entry of the conversation context.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Source reads the two turn streams. Each call returns the newest limit
// entries in chronological order; limit <= 0 returns everything.
type Source interface {
	ListUserMessages(ctx context.Context, chatID string, limit int) ([]*db.UserMessage, error)
	ListAIMessages(ctx context.Context, chatID string, limit int) ([]*db.AIMessage, error)
}

type Manager struct {
	src Source
}

func NewManager(src Source) *Manager {
	return &Manager{src: src}
}

// GetWindow returns the last limit turns of the chat in chronological order.
// limit <= 0 returns the whole history. Turns with identical timestamps keep
// user turns ahead of assistant turns.
func (m *Manager) GetWindow(ctx context.Context, chatID string, limit int) ([]Turn, error) {
	var (
		users []*db.UserMessage
		ais   []*db.AIMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = m.src.ListUserMessages(gctx, chatID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		ais, err = m.src.ListAIMessages(gctx, chatID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	turns := make([]Turn, 0, len(users)+len(ais))
	for _, u := range users {
		turns = append(turns, FromUserMessage(u))
	}
	for _, a := range ais {
		turns = append(turns, FromAIMessage(a))
	}
	return Merge(turns, limit), nil
}

func FromUserMessage(m *db.UserMessage) Turn {
	return Turn{ID: m.ID, Role: ai.RoleUser, Content: m.Content, CreatedAt: time.UnixMicro(m.CreatedAt)}
}

func FromAIMessage(m *db.AIMessage) Turn {
	return Turn{ID: m.ID, Role: ai.RoleAssistant, Content: m.Content, Model: m.Model, CreatedAt: time.UnixMicro(m.CreatedAt)}
}

// Merge orders turns by creation time and keeps the last limit of them.
// The sort is stable, so callers control tie order through input order.
func Merge(turns []Turn, limit int) []Turn {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].CreatedAt.Before(turns[j].CreatedAt)
	})
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

// ToMessages converts turns to the provider-neutral message format.
func ToMessages(turns []Turn) []ai.Message {
	out := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, ai.Message{Role: t.Role, Content: t.Content})
	}
	return out
}
