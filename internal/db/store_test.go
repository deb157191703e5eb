package db

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock lets tests produce identical timestamps on purpose.
func fixedClock(s *Store, at time.Time) {
	s.now = func() time.Time { return at }
}

func seedUser(t *testing.T, s *Store, email string) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserParams{Name: "Ana", Email: email, PasswordHash: "x"})
	require.NoError(t, err)
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "ana@example.com")

	_, err := s.CreateUser(ctx, CreateUserParams{Name: "Other", Email: " ANA@example.com ", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	u, err := s.GetUserByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)

	_, err = s.GetUser(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClaimAutoTitleOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")

	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "Nova Conversa"})
	require.NoError(t, err)
	assert.Equal(t, NameSourceDefault, chat.NameSource)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimAutoTitle(ctx, chat.ID, "Rescisão contratual")
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	got, err := s.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rescisão contratual", got.Name)
	assert.Equal(t, NameSourceAuto, got.NameSource)
}

func TestRenameBlocksAutoTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "Nova Conversa"})
	require.NoError(t, err)

	_, err = s.RenameChat(ctx, chat.ID, "Meu caso")
	require.NoError(t, err)

	ok, err := s.ClaimAutoTitle(ctx, chat.ID, "Outro")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meu caso", got.Name)
}

func TestMessagesLimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "c"})
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		fixedClock(s, base.Add(time.Duration(i)*time.Second))
		_, err := s.CreateUserMessage(ctx, CreateUserMessageParams{ChatID: chat.ID, UserID: u.ID, Content: string(rune('a' + i))})
		require.NoError(t, err)
	}

	all, err := s.ListUserMessages(ctx, chat.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	last, err := s.ListUserMessages(ctx, chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "d", last[0].Content)
	assert.Equal(t, "e", last[1].Content)
}

func TestSameTimestampKeepsInsertOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "c"})
	require.NoError(t, err)

	fixedClock(s, time.Unix(1700000000, 0))
	for _, c := range []string{"first", "second", "third"} {
		_, err := s.CreateAIMessage(ctx, CreateAIMessageParams{ChatID: chat.ID, Content: c, Model: "gpt-4o"})
		require.NoError(t, err)
	}

	got, err := s.ListAIMessages(ctx, chat.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Content, got[1].Content, got[2].Content})
	assert.Equal(t, "gpt-4o", got[0].Model)
}

func TestDeleteChatCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "c"})
	require.NoError(t, err)
	_, err = s.CreateUserMessage(ctx, CreateUserMessageParams{ChatID: chat.ID, UserID: u.ID, Content: "q"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(ctx, chat.ID))
	msgs, err := s.ListUserMessages(ctx, chat.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.True(t, errors.Is(s.DeleteChat(ctx, chat.ID), ErrNotFound))
}

func TestCompleteContractExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")

	c, err := s.CreateContract(ctx, CreateContractParams{UserID: u.ID, InputText: "cláusula"})
	require.NoError(t, err)
	assert.Equal(t, ContractProcessing, c.Status)

	require.NoError(t, s.CompleteContract(ctx, c.ID, ContractDone, `{"status":"done"}`))
	err = s.CompleteContract(ctx, c.ID, ContractError, `{"status":"error"}`)
	assert.True(t, errors.Is(err, ErrAlreadyFinalized))

	got, err := s.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ContractDone, got.Status)
	assert.JSONEq(t, `{"status":"done"}`, got.Result)

	assert.True(t, errors.Is(s.CompleteContract(ctx, "missing", ContractDone, "{}"), ErrNotFound))
	assert.Error(t, s.CompleteContract(ctx, c.ID, ContractProcessing, "{}"))
}

func TestListStaleContracts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")

	fixedClock(s, time.Unix(1000, 0))
	old, err := s.CreateContract(ctx, CreateContractParams{UserID: u.ID, InputText: "old"})
	require.NoError(t, err)
	done, err := s.CreateContract(ctx, CreateContractParams{UserID: u.ID, InputText: "done"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteContract(ctx, done.ID, ContractDone, "{}"))

	fixedClock(s, time.Unix(5000, 0))
	_, err = s.CreateContract(ctx, CreateContractParams{UserID: u.ID, InputText: "fresh"})
	require.NoError(t, err)

	stale, err := s.ListStaleContracts(ctx, time.Unix(2000, 0).UnixMicro())
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestRatingsPerChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ana := seedUser(t, s, "ana@example.com")
	bruno := seedUser(t, s, "bruno@example.com")
	first, err := s.CreateChat(ctx, CreateChatParams{UserID: ana.ID, Name: "Férias"})
	require.NoError(t, err)
	second, err := s.CreateChat(ctx, CreateChatParams{UserID: ana.ID, Name: "Aluguel"})
	require.NoError(t, err)
	other, err := s.CreateChat(ctx, CreateChatParams{UserID: bruno.ID, Name: "Herança"})
	require.NoError(t, err)

	base := time.Unix(1700000000, 0)
	fixedClock(s, base)
	r1, err := s.CreateRating(ctx, CreateRatingParams{UserID: ana.ID, ChatID: first.ID, Score: 5, Feedback: "Muito claro"})
	require.NoError(t, err)
	fixedClock(s, base.Add(time.Second))
	_, err = s.CreateRating(ctx, CreateRatingParams{UserID: ana.ID, ChatID: second.ID, Score: 2})
	require.NoError(t, err)
	_, err = s.CreateRating(ctx, CreateRatingParams{UserID: bruno.ID, ChatID: other.ID, Score: 4})
	require.NoError(t, err)

	_, err = s.CreateRating(ctx, CreateRatingParams{UserID: ana.ID, ChatID: first.ID, Score: 1})
	assert.ErrorIs(t, err, ErrAlreadyRated)

	mine, err := s.ListRatings(ctx, RatingFilter{UserID: ana.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ChatID)
	assert.Equal(t, first.ID, mine[1].ChatID)

	withFeedback, err := s.ListRatings(ctx, RatingFilter{WithFeedback: true})
	require.NoError(t, err)
	require.Len(t, withFeedback, 1)
	assert.Equal(t, "Muito claro", withFeedback[0].Feedback)

	fours, err := s.ListRatings(ctx, RatingFilter{Score: 4})
	require.NoError(t, err)
	require.Len(t, fours, 1)
	assert.Equal(t, bruno.ID, fours[0].UserID)

	byChat, err := s.ListRatings(ctx, RatingFilter{ChatID: first.ID})
	require.NoError(t, err)
	require.Len(t, byChat, 1)
	assert.Equal(t, r1.ID, byChat[0].ID)

	avg, err := s.AverageScore(ctx, ana.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, avg, 0.001)
	unrated := seedUser(t, s, "carla@example.com")
	avg, err = s.AverageScore(ctx, unrated.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestUpdateAndDeleteRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "c"})
	require.NoError(t, err)

	fixedClock(s, time.Unix(1700000000, 0))
	r, err := s.CreateRating(ctx, CreateRatingParams{UserID: u.ID, ChatID: chat.ID, Score: 3, Feedback: "ok"})
	require.NoError(t, err)

	fixedClock(s, time.Unix(1700000100, 0))
	score := 5
	got, err := s.UpdateRating(ctx, r.ID, UpdateRatingParams{Score: &score})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Score)
	assert.Equal(t, "ok", got.Feedback)
	assert.Greater(t, got.UpdatedAt, got.CreatedAt)

	empty := ""
	got, err = s.UpdateRating(ctx, r.ID, UpdateRatingParams{Feedback: &empty})
	require.NoError(t, err)
	assert.Empty(t, got.Feedback)
	withFeedback, err := s.ListRatings(ctx, RatingFilter{WithFeedback: true})
	require.NoError(t, err)
	assert.Empty(t, withFeedback)

	_, err = s.UpdateRating(ctx, "missing", UpdateRatingParams{Score: &score})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.DeleteRating(ctx, r.ID))
	_, err = s.GetRating(ctx, r.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.DeleteRating(ctx, r.ID), ErrNotFound))
}

func TestRatingGoesWithItsChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "c"})
	require.NoError(t, err)
	r, err := s.CreateRating(ctx, CreateRatingParams{UserID: u.ID, ChatID: chat.ID, Score: 4})
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(ctx, chat.ID))
	_, err = s.GetRating(ctx, r.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUserActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@b.c")
	chat, err := s.CreateChat(ctx, CreateChatParams{UserID: u.ID, Name: "c"})
	require.NoError(t, err)

	_, err = s.LatestUserMessage(ctx, u.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	base := time.Unix(1700000000, 0)
	for i, content := range []string{"antiga", "recente", "última"} {
		fixedClock(s, base.Add(time.Duration(i)*time.Hour))
		_, err := s.CreateUserMessage(ctx, CreateUserMessageParams{ChatID: chat.ID, UserID: u.ID, Content: content})
		require.NoError(t, err)
	}

	n, err := s.CountUserMessages(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	times, err := s.UserMessageTimes(ctx, u.ID, base.Add(time.Hour).UnixMicro())
	require.NoError(t, err)
	assert.Equal(t, []int64{base.Add(time.Hour).UnixMicro(), base.Add(2 * time.Hour).UnixMicro()}, times)

	latest, err := s.LatestUserMessage(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "última", latest.Content)
}
