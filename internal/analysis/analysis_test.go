package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/db"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedAnalyzer blocks each call until released and tracks concurrency.
type gatedAnalyzer struct {
	mu      sync.Mutex
	started []string
	release map[string]chan struct{}
	running atomic.Int32
	peak    atomic.Int32
	startCh chan string
}

func newGated() *gatedAnalyzer {
	return &gatedAnalyzer{release: make(map[string]chan struct{}), startCh: make(chan string, 16)}
}

func (g *gatedAnalyzer) gate(text string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.release[text]
	if !ok {
		ch = make(chan struct{})
		g.release[text] = ch
	}
	return ch
}

func (g *gatedAnalyzer) Analyze(ctx context.Context, text string) (*Report, error) {
	n := g.running.Add(1)
	defer g.running.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g.mu.Lock()
	g.started = append(g.started, text)
	g.mu.Unlock()
	g.startCh <- text

	select {
	case <-g.gate(text):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	switch text {
	case "fail":
		return nil, errors.New("model unavailable")
	case "panic":
		panic("boom")
	}
	return &Report{Summary: "ok " + text, OverallRisk: RiskLow, Parties: []string{}, Clauses: []Clause{}}, nil
}

func (g *gatedAnalyzer) open(text string) { close(g.gate(text)) }

type write struct{ id, status, result string }

type memRecorder struct {
	mu     sync.Mutex
	writes []write
	done   chan write
}

func newMemRecorder() *memRecorder { return &memRecorder{done: make(chan write, 16)} }

func (r *memRecorder) CompleteContract(_ context.Context, id, status, result string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.writes {
		if w.id == id {
			return db.ErrAlreadyFinalized
		}
	}
	w := write{id, status, result}
	r.writes = append(r.writes, w)
	r.done <- w
	return nil
}

func waitStart(t *testing.T, g *gatedAnalyzer) string {
	t.Helper()
	select {
	case s := <-g.startCh:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no job started")
		return ""
	}
}

func waitWrite(t *testing.T, r *memRecorder) write {
	t.Helper()
	select {
	case w := <-r.done:
		return w
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal write")
		return write{}
	}
}

func shutdown(t *testing.T, p *Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestThirdJobWaitsForFreeWorker(t *testing.T) {
	g := newGated()
	rec := newMemRecorder()
	p := NewPool(g, rec, 2)

	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, p.Submit(Job{ContractID: id, Text: id}))
	}

	first, second := waitStart(t, g), waitStart(t, g)
	assert.ElementsMatch(t, []string{"c1", "c2"}, []string{first, second})

	select {
	case s := <-g.startCh:
		t.Fatalf("job %s started while both workers were busy", s)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, Stats{Workers: 2, Active: 2, Queued: 1}, p.Stats())
	assert.True(t, p.Tracked("c3"))

	g.open("c1")
	assert.Equal(t, "c1", waitWrite(t, rec).id)
	assert.Equal(t, "c3", waitStart(t, g))

	g.open("c2")
	g.open("c3")
	waitWrite(t, rec)
	waitWrite(t, rec)
	shutdown(t, p)

	assert.EqualValues(t, 2, g.peak.Load())
	assert.False(t, p.Tracked("c3"))
}

func TestConcurrencyNeverExceedsWorkers(t *testing.T) {
	g := newGated()
	rec := newMemRecorder()
	rec.done = make(chan write, 64)
	g.startCh = make(chan string, 64)
	p := NewPool(g, rec, 3)

	const jobs = 20
	for i := 0; i < jobs; i++ {
		id := fmt.Sprintf("c%02d", i)
		g.open(id)
		require.NoError(t, p.Submit(Job{ContractID: id, Text: id}))
	}
	for i := 0; i < jobs; i++ {
		waitWrite(t, rec)
	}
	shutdown(t, p)

	assert.LessOrEqual(t, g.peak.Load(), int32(3))
	assert.Len(t, rec.writes, jobs)
}

func TestFailuresAndPanicsProduceOneErrorRecord(t *testing.T) {
	g := newGated()
	rec := newMemRecorder()
	var finished atomic.Int32
	p := NewPool(g, rec, 2, WithOnFinish(func(string, string, error) { finished.Add(1) }))

	g.open("fail")
	g.open("panic")
	require.NoError(t, p.Submit(Job{ContractID: "f", Text: "fail"}))
	require.NoError(t, p.Submit(Job{ContractID: "p", Text: "panic"}))
	waitWrite(t, rec)
	waitWrite(t, rec)
	shutdown(t, p)

	byID := map[string]write{}
	for _, w := range rec.writes {
		byID[w.id] = w
	}
	require.Len(t, byID, 2)
	for _, id := range []string{"f", "p"} {
		assert.Equal(t, db.ContractError, byID[id].status)
		rep, err := DecodeReport(byID[id].result)
		require.NoError(t, err)
		assert.Equal(t, StatusError, rep.Status)
		assert.NotEmpty(t, rep.Error)
		assert.NotNil(t, rep.Clauses)
	}
	assert.Contains(t, byID["f"].result, "model unavailable")
	assert.Contains(t, byID["p"].result, "boom")
	assert.EqualValues(t, 2, finished.Load())
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := NewPool(newGated(), newMemRecorder(), 1)
	shutdown(t, p)
	assert.ErrorIs(t, p.Submit(Job{ContractID: "x", Text: "x"}), ErrPoolClosed)
	assert.Error(t, NewPool(newGated(), newMemRecorder(), 1).Submit(Job{}))
}

func TestShutdownTwice(t *testing.T) {
	p := NewPool(newGated(), newMemRecorder(), 2)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.NotPanics(t, func() {
		assert.NoError(t, p.Shutdown(context.Background()))
	})
}

func TestShutdownDeadlineCancelsRunningJobs(t *testing.T) {
	g := newGated()
	rec := newMemRecorder()
	p := NewPool(g, rec, 1)
	require.NoError(t, p.Submit(Job{ContractID: "slow", Text: "slow"}))
	require.NoError(t, p.Submit(Job{ContractID: "queued", Text: "queued"}))
	waitStart(t, g)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	require.Len(t, rec.writes, 1)
	assert.Equal(t, "slow", rec.writes[0].id)
	assert.Equal(t, db.ContractError, rec.writes[0].status)
}

func newStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPoolWritesThroughStoreExactlyOnce(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	u, err := store.CreateUser(ctx, db.CreateUserParams{Name: "Ana", Email: "ana@x.y", PasswordHash: "h"})
	require.NoError(t, err)
	c, err := store.CreateContract(ctx, db.CreateContractParams{UserID: u.ID, InputText: "ok"})
	require.NoError(t, err)

	g := newGated()
	g.open("ok")
	done := make(chan error, 1)
	p := NewPool(g, store, 2, WithOnFinish(func(_, _ string, err error) { done <- err }))
	require.NoError(t, p.Submit(Job{ContractID: c.ID, Text: "ok"}))
	require.NoError(t, <-done)
	shutdown(t, p)

	got, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ContractDone, got.Status)
	rep, err := DecodeReport(got.Result)
	require.NoError(t, err)
	assert.Equal(t, "ok ok", rep.Summary)

	assert.ErrorIs(t, store.CompleteContract(ctx, c.ID, db.ContractError, "{}"), db.ErrAlreadyFinalized)
}

func TestSweeperSkipsTrackedContracts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	u, err := store.CreateUser(ctx, db.CreateUserParams{Name: "Ana", Email: "ana@x.y", PasswordHash: "h"})
	require.NoError(t, err)
	lost, err := store.CreateContract(ctx, db.CreateContractParams{UserID: u.ID, InputText: "lost"})
	require.NoError(t, err)
	owned, err := store.CreateContract(ctx, db.CreateContractParams{UserID: u.ID, InputText: "owned"})
	require.NoError(t, err)

	g := newGated()
	p := NewPool(g, store, 1)
	require.NoError(t, p.Submit(Job{ContractID: owned.ID, Text: "owned"}))
	waitStart(t, g)

	s := NewSweeper(store, p, time.Minute)
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetContract(ctx, lost.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ContractError, got.Status)
	assert.Contains(t, got.Result, "interrupted")

	got, err = store.GetContract(ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ContractProcessing, got.Status)

	g.open("owned")
	shutdown(t, p)
	got, err = store.GetContract(ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ContractDone, got.Status)

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeperSchedule(t *testing.T) {
	s := NewSweeper(newStore(t), nil, time.Minute)
	assert.Error(t, s.Start(context.Background(), "not a schedule"))
	s2 := NewSweeper(newStore(t), nil, time.Minute)
	require.NoError(t, s2.Start(context.Background(), "@every 1h"))
	s2.Stop()
}

type stubResolver struct {
	p   ai.Provider
	err error
}

func (r stubResolver) Resolve(model string) (ai.Provider, ai.Selection, error) {
	return r.p, ai.Selection{Model: model}, r.err
}

type replyProvider struct {
	reply string
	got   *ai.ChatRequest
}

func (p *replyProvider) ID() string { return "stub" }

func (p *replyProvider) Stream(_ context.Context, req *ai.ChatRequest) (<-chan ai.StreamEvent, error) {
	p.got = req
	ch := make(chan ai.StreamEvent, 2)
	ch <- ai.StreamEvent{Type: ai.EventTypeText, Text: p.reply}
	ch <- ai.StreamEvent{Type: ai.EventTypeDone}
	close(ch)
	return ch, nil
}

func TestLLMAnalyzerParsesFencedJSON(t *testing.T) {
	prov := &replyProvider{reply: "```json\n{\"summary\":\"Locação residencial\",\"parties\":[\"Locador\",\"Locatário\"],\"overallRisk\":\"Alto\",\"clauses\":[{\"title\":\"Multa\",\"risk\":\"high\",\"explanation\":\"excessiva\"}]}\n```"}
	a := NewLLMAnalyzer(stubResolver{p: prov}, "gpt-4o-mini", 10, 2048)

	rep, err := a.Analyze(context.Background(), "Contrato de locação com multa de 12 aluguéis")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, rep.Status)
	assert.Equal(t, RiskHigh, rep.OverallRisk)
	assert.Equal(t, RiskHigh, rep.Clauses[0].Risk)
	assert.Equal(t, []string{"Locador", "Locatário"}, rep.Parties)

	assert.Equal(t, "gpt-4o-mini", prov.got.Model)
	assert.Equal(t, "CONTRATO:\n\nContrato d", prov.got.Messages[0].Content)
	assert.Contains(t, prov.got.System, "JSON")
}

func TestLLMAnalyzerErrors(t *testing.T) {
	_, err := NewLLMAnalyzer(stubResolver{p: &replyProvider{reply: "x"}}, "m", 0, 0).Analyze(context.Background(), "  ")
	assert.Error(t, err)

	_, err = NewLLMAnalyzer(stubResolver{p: &replyProvider{reply: "não sei"}}, "m", 0, 0).Analyze(context.Background(), "texto")
	assert.ErrorIs(t, err, errNoJSON)

	cfgErr := errors.New("not configured")
	_, err = NewLLMAnalyzer(stubResolver{err: cfgErr}, "m", 0, 0).Analyze(context.Background(), "texto")
	assert.ErrorIs(t, err, cfgErr)
}

func TestDiscussIncludesReport(t *testing.T) {
	prov := &replyProvider{reply: "A multa é abusiva."}
	a := NewLLMAnalyzer(stubResolver{p: prov}, "m", 0, 0)
	rep := &Report{Status: StatusDone, Summary: "Locação", OverallRisk: RiskHigh, Clauses: []Clause{{Title: "Multa", Risk: RiskHigh, Explanation: "excessiva"}}}

	reply, err := a.Discuss(context.Background(), "texto do contrato", rep, "A multa é válida?")
	require.NoError(t, err)
	assert.Equal(t, "A multa é abusiva.", reply)
	assert.Contains(t, prov.got.System, "Multa (risco alto)")
	assert.Contains(t, prov.got.System, "texto do contrato")
	assert.Equal(t, "A multa é válida?", prov.got.Messages[0].Content)
}

func TestParseReportNormalizes(t *testing.T) {
	rep, err := ParseReport(`{"summary":"s","overallRisk":"???"}`)
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, rep.OverallRisk)
	assert.NotNil(t, rep.Parties)
	assert.NotNil(t, rep.Clauses)

	_, err = ParseReport(`{"summary":""}`)
	assert.Error(t, err)
}
