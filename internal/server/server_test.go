package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryai/sentry/internal/ai"
	"github.com/sentryai/sentry/internal/analysis"
	"github.com/sentryai/sentry/internal/config"
	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/prompt"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

const testConfig = `
auth:
  access_secret: test-secret
chat:
  default_model: gpt-4o-mini
  title_model: gpt-4.1-nano
analysis:
  model: gpt-4o
  workers: 2
knowledge:
  enabled: "false"
`

const reportJSON = `{"summary":"Locação residencial","parties":["Locador","Locatário"],"overallRisk":"alto",
"clauses":[{"title":"Multa rescisória","risk":"alto","explanation":"Multa de doze aluguéis."}]}`

// modelProvider answers with a fixed reply per model.
type modelProvider struct {
	replies map[string]string
}

func (p *modelProvider) ID() string { return "test" }

func (p *modelProvider) Stream(_ context.Context, req *ai.ChatRequest) (<-chan ai.StreamEvent, error) {
	reply, ok := p.replies[req.Model]
	if !ok {
		reply = "Resposta jurídica."
	}
	ch := make(chan ai.StreamEvent, 2)
	ch <- ai.StreamEvent{Type: ai.EventTypeText, Text: reply}
	ch <- ai.StreamEvent{Type: ai.EventTypeDone}
	close(ch)
	return ch, nil
}

type testServer struct {
	*httptest.Server
	svcCtx *svc.ServiceContext
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	c, err := config.LoadFromBytes([]byte(testConfig))
	require.NoError(t, err)

	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	reg := ai.NewRegistry()
	reg.Register(ai.KindOpenAI, &modelProvider{replies: map[string]string{
		"gpt-4.1-nano": "Título do teste",
		"gpt-4o":       reportJSON,
	}})
	policy, err := prompt.NewPolicyStore("")
	require.NoError(t, err)

	svcCtx := svc.NewWith(c, store, reg, policy)
	srv := httptest.NewServer(NewRouter(svcCtx, ServerOptions{Quiet: true}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, svcCtx.Close(ctx))
	})
	return &testServer{Server: srv, svcCtx: svcCtx}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (int, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func (s *testServer) register(t *testing.T, name, email string) types.AuthResponse {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Name: name, Email: email, Password: "segredo123",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	return decode[types.AuthResponse](t, body)
}

func (s *testServer) createChat(t *testing.T, token string) types.Chat {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/v1/chats", token, types.CreateChatRequest{})
	require.Equal(t, http.StatusOK, code, string(body))
	return decode[types.Chat](t, body)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	first := s.register(t, "Ana", "Ana@Example.com")
	assert.NotEmpty(t, first.Token)
	assert.True(t, first.User.IsAdmin)
	assert.Equal(t, "ana@example.com", first.User.Email)

	second := s.register(t, "Bruno", "bruno@example.com")
	assert.False(t, second.User.IsAdmin)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/register", "", types.RegisterRequest{
		Name: "Outra", Email: "ana@example.com", Password: "segredo123",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{Email: "ana@example.com", Password: "errada123"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", types.LoginRequest{Email: "ana@example.com", Password: "segredo123"})
	require.Equal(t, http.StatusOK, code)
	login := decode[types.AuthResponse](t, body)

	code, body = s.do(t, http.MethodGet, "/api/v1/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.User.Id, decode[types.UserInfo](t, body).Id)

	code, _ = s.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestChatConversation(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")
	chat := s.createChat(t, ana.Token)
	assert.Equal(t, "Nova Conversa", chat.Name)

	code, body := s.do(t, http.MethodPost, "/api/v1/messages", ana.Token, types.SendMessageRequest{
		ChatId: chat.Id, Content: "Posso ser demitido durante as férias?",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	sent := decode[types.SendMessageResponse](t, body)
	assert.Equal(t, "Posso ser demitido durante as férias?", sent.UserTurn.Content)
	assert.Equal(t, "Resposta jurídica.", sent.AssistantTurn.Content)
	assert.Equal(t, "gpt-4o-mini", sent.AssistantTurn.Model)

	s.svcCtx.Titler.Wait()
	code, body = s.do(t, http.MethodGet, "/api/v1/chats/"+chat.Id, ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	titled := decode[types.Chat](t, body)
	assert.Equal(t, "Título do teste", titled.Name)
	assert.Equal(t, db.NameSourceAuto, titled.NameSource)

	code, body = s.do(t, http.MethodGet, "/api/v1/chats/"+chat.Id+"/messages", ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	msgs := decode[types.ListMessagesResponse](t, body).Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, ai.RoleUser, msgs[0].Role)
	assert.Equal(t, ai.RoleAssistant, msgs[1].Role)

	code, _ = s.do(t, http.MethodPost, "/api/v1/messages", ana.Token, types.SendMessageRequest{ChatId: chat.Id})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/messages", ana.Token, types.SendMessageRequest{
		ChatId: chat.Id, Content: "oi", Model: "bogus-model",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStreamEndpoint(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")
	chat := s.createChat(t, ana.Token)

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/messages/stream",
		strings.NewReader(`{"chatId":"`+chat.Id+`","content":"Quanto é o aviso prévio?"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ana.Token)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), `data: {"token":"Resposta jurídica."}`)
	assert.True(t, strings.HasSuffix(string(body), "event: end\ndata: [DONE]\n\n"), string(body))

	code, data := s.do(t, http.MethodGet, "/api/v1/chats/"+chat.Id+"/messages", ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[types.ListMessagesResponse](t, data).Messages, 2)
}

func TestStreamRejectionIsJSON(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")

	code, body := s.do(t, http.MethodPost, "/api/v1/messages/stream", ana.Token, types.SendMessageRequest{
		ChatId: "missing", Content: "oi",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(body), "chat not found")
}

func TestChatOwnership(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Ana", "ana@example.com")
	bruno := s.register(t, "Bruno", "bruno@example.com")
	carla := s.register(t, "Carla", "carla@example.com")
	chat := s.createChat(t, bruno.Token)

	code, _ := s.do(t, http.MethodGet, "/api/v1/chats/"+chat.Id, carla.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/messages", carla.Token, types.SendMessageRequest{ChatId: chat.Id, Content: "oi"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/chats?userId="+bruno.User.Id, carla.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := s.do(t, http.MethodGet, "/api/v1/chats?userId="+bruno.User.Id, admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[types.ListChatsResponse](t, body).Chats, 1)

	code, body = s.do(t, http.MethodPut, "/api/v1/chats/"+chat.Id, bruno.Token, map[string]string{"name": "Minhas férias"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, db.NameSourceUser, decode[types.Chat](t, body).NameSource)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/chats/"+chat.Id, carla.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/chats/"+chat.Id, bruno.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/chats/"+chat.Id, bruno.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func (s *testServer) waitContract(t *testing.T, token, id string) types.Contract {
	t.Helper()
	var got types.Contract
	require.Eventually(t, func() bool {
		code, body := s.do(t, http.MethodGet, "/api/v1/contracts/"+id, token, nil)
		if code != http.StatusOK {
			return false
		}
		got = decode[types.Contract](t, body)
		return got.Status != db.ContractProcessing
	}, 5*time.Second, 20*time.Millisecond)
	return got
}

func TestContractLifecycle(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")

	code, body := s.do(t, http.MethodPost, "/api/v1/contracts", ana.Token, types.SubmitContractRequest{
		Text: "CONTRATO DE LOCAÇÃO RESIDENCIAL. Multa de doze aluguéis em caso de rescisão.",
	})
	require.Equal(t, http.StatusAccepted, code, string(body))
	submitted := decode[types.SubmitContractResponse](t, body)
	assert.Equal(t, db.ContractProcessing, submitted.Status)

	got := s.waitContract(t, ana.Token, submitted.Id)
	require.Equal(t, db.ContractDone, got.Status)
	report := decode[analysis.Report](t, got.Report)
	assert.Equal(t, analysis.RiskHigh, report.OverallRisk)
	assert.Equal(t, "Locação residencial", report.Summary)

	code, body = s.do(t, http.MethodPost, "/api/v1/contracts/"+submitted.Id+"/chat", ana.Token, map[string]string{"message": "A multa é abusiva?"})
	require.Equal(t, http.StatusOK, code, string(body))
	assert.NotEmpty(t, decode[types.ContractChatResponse](t, body).Reply)

	code, body = s.do(t, http.MethodGet, "/api/v1/contracts", ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[types.ListContractsResponse](t, body).Contracts, 1)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/contracts/"+submitted.Id, ana.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/contracts/"+submitted.Id, ana.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestContractUpload(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")

	upload := func(filename string, content []byte) (int, []byte) {
		body, contentType := multipartUpload(t, filename, content)
		req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/contracts", body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", contentType)
		return s.send(t, req, ana.Token)
	}

	code, body := upload("contrato.txt", []byte("Contrato de prestação de serviços entre as partes."))
	require.Equal(t, http.StatusAccepted, code, string(body))
	got := s.waitContract(t, ana.Token, decode[types.SubmitContractResponse](t, body).Id)
	assert.Equal(t, "contrato.txt", got.Filename)
	assert.Equal(t, db.ContractDone, got.Status)

	code, _ = upload("setup.exe", []byte("MZ\x90\x00binary"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = upload("disfarce.txt", []byte("MZ\x90\x00binary"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = upload("vazio.txt", []byte("   "))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestContractOwnerRules(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Ana", "ana@example.com")
	bruno := s.register(t, "Bruno", "bruno@example.com")

	code, _ := s.do(t, http.MethodPost, "/api/v1/contracts", bruno.Token, types.SubmitContractRequest{
		OwnerId: admin.User.Id, Text: "Contrato qualquer.",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/contracts", admin.Token, types.SubmitContractRequest{
		OwnerId: "no-such-user", Text: "Contrato qualquer.",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := s.do(t, http.MethodPost, "/api/v1/contracts", admin.Token, types.SubmitContractRequest{
		OwnerId: bruno.User.Id, Text: "Contrato qualquer.",
	})
	require.Equal(t, http.StatusAccepted, code)
	id := decode[types.SubmitContractResponse](t, body).Id
	assert.Equal(t, bruno.User.Id, s.waitContract(t, bruno.Token, id).UserId)

	code, _ = s.do(t, http.MethodPost, "/api/v1/contracts", bruno.Token, types.SubmitContractRequest{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestModelsKnowledgeAndHealth(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")

	code, body := s.do(t, http.MethodGet, "/api/v1/models", ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	models := decode[types.ModelsResponse](t, body)
	assert.Equal(t, []string{"openai"}, models.Providers)
	assert.Equal(t, "gpt-4o-mini", models.DefaultModel)

	code, body = s.do(t, http.MethodGet, "/api/v1/knowledge/search?q=justa+causa", ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[types.KnowledgeSearchResponse](t, body).Snippets)

	code, _ = s.do(t, http.MethodGet, "/api/v1/knowledge/search", ana.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	health := decode[types.HealthResponse](t, body)
	assert.Equal(t, "healthy", health.Status)
	require.NotNil(t, health.Analysis)
	assert.Equal(t, 2, health.Analysis.Workers)
}

func TestRatings(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Ana", "ana@example.com")
	bruno := s.register(t, "Bruno", "bruno@example.com")
	carla := s.register(t, "Carla", "carla@example.com")
	chat := s.createChat(t, bruno.Token)

	code, _ := s.do(t, http.MethodPost, "/api/v1/ratings", carla.Token, types.CreateRatingRequest{ChatId: chat.Id, Score: 4})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/ratings", bruno.Token, types.CreateRatingRequest{ChatId: chat.Id, Score: 6})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/ratings", bruno.Token, types.CreateRatingRequest{ChatId: "missing", Score: 4})
	assert.Equal(t, http.StatusNotFound, code)

	code, body := s.do(t, http.MethodPost, "/api/v1/ratings", bruno.Token, types.CreateRatingRequest{
		ChatId: chat.Id, Score: 4, Feedback: "  Resposta objetiva  ",
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	rated := decode[types.Rating](t, body)
	assert.Equal(t, bruno.User.Id, rated.UserId)
	assert.Equal(t, "Resposta objetiva", rated.Feedback)

	code, _ = s.do(t, http.MethodPost, "/api/v1/ratings", bruno.Token, types.CreateRatingRequest{ChatId: chat.Id, Score: 3})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/ratings", bruno.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[types.ListRatingsResponse](t, body).Ratings, 1)
	code, body = s.do(t, http.MethodGet, "/api/v1/ratings", carla.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[types.ListRatingsResponse](t, body).Ratings)
	code, _ = s.do(t, http.MethodGet, "/api/v1/ratings?userId="+bruno.User.Id, carla.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/ratings?score=9", bruno.Token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/ratings?score=4&withFeedback=true", admin.Token, nil)
	require.Equal(t, http.StatusOK, code)
	all := decode[types.ListRatingsResponse](t, body).Ratings
	require.Len(t, all, 1)
	assert.Equal(t, rated.Id, all[0].Id)

	code, _ = s.do(t, http.MethodGet, "/api/v1/ratings/"+rated.Id, carla.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/ratings/"+rated.Id, bruno.Token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	code, body = s.do(t, http.MethodPut, "/api/v1/ratings/"+rated.Id, bruno.Token, map[string]any{"score": 5})
	require.Equal(t, http.StatusOK, code, string(body))
	updated := decode[types.Rating](t, body)
	assert.Equal(t, 5, updated.Score)
	assert.Equal(t, "Resposta objetiva", updated.Feedback)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/ratings/"+rated.Id, carla.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/ratings/"+rated.Id, bruno.Token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/ratings/"+rated.Id, bruno.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDashboardStats(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@example.com")
	bruno := s.register(t, "Bruno", "bruno@example.com")
	chat := s.createChat(t, ana.Token)

	code, body := s.do(t, http.MethodPost, "/api/v1/messages", ana.Token, types.SendMessageRequest{
		ChatId: chat.Id, Content: "A multa do meu aluguel é abusiva?",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	s.svcCtx.Titler.Wait()

	code, body = s.do(t, http.MethodPost, "/api/v1/contracts", ana.Token, types.SubmitContractRequest{
		Text: "CONTRATO DE LOCAÇÃO RESIDENCIAL. Multa de doze aluguéis em caso de rescisão.",
	})
	require.Equal(t, http.StatusAccepted, code, string(body))
	require.Equal(t, db.ContractDone, s.waitContract(t, ana.Token, decode[types.SubmitContractResponse](t, body).Id).Status)

	code, _ = s.do(t, http.MethodPost, "/api/v1/ratings", ana.Token, types.CreateRatingRequest{ChatId: chat.Id, Score: 4})
	require.Equal(t, http.StatusCreated, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/dashboard/stats", ana.Token, nil)
	require.Equal(t, http.StatusOK, code, string(body))
	stats := decode[types.DashboardStatsResponse](t, body)
	assert.Equal(t, types.DashboardKpis{
		ActiveCases:       1,
		MessagesSent:      1,
		ContractsAnalyzed: 1,
		RisksFlagged:      1,
		AverageRating:     4,
	}, stats.Kpis)
	require.Len(t, stats.Activity, 7)
	today := stats.Activity[6]
	assert.Equal(t, time.Now().Format("02/01"), today.Day)
	assert.Equal(t, 1, today.Consultations)
	assert.Equal(t, 1, today.Analyses)
	require.Len(t, stats.Recent, 1)
	assert.Equal(t, "Título do teste", stats.Recent[0].Name)
	assert.Equal(t, types.DashboardInsight{Type: "success", Text: "Título do teste"}, stats.Insight)

	code, _ = s.do(t, http.MethodGet, "/api/v1/dashboard/stats?userId="+ana.User.Id, bruno.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/dashboard/stats?userId="+bruno.User.Id, ana.Token, nil)
	require.Equal(t, http.StatusOK, code)
	quiet := decode[types.DashboardStatsResponse](t, body)
	assert.Zero(t, quiet.Kpis)
	assert.Empty(t, quiet.Recent)
	assert.Equal(t, "neutral", quiet.Insight.Type)
	assert.NotEmpty(t, quiet.Insight.Text)
}
