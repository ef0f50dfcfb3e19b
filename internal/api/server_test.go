package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/disc-herniation-assistant/internal/casestore"
	"github.com/disc-herniation-assistant/internal/domain"
	"github.com/disc-herniation-assistant/internal/llm"
	"github.com/disc-herniation-assistant/internal/service"
)

// MockGenerator is a mock implementation of llm.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, prompt string, history []llm.Message) (string, error) {
	args := m.Called(ctx, prompt, history)
	return args.String(0), args.Error(1)
}

type staticConfig struct {
	cfg domain.Config
}

func (s *staticConfig) GetConfig() *domain.Config               { return &s.cfg }
func (s *staticConfig) GetServerConfig() *domain.ServerConfig   { return &s.cfg.Server }
func (s *staticConfig) GetStorageConfig() *domain.StorageConfig { return &s.cfg.Storage }
func (s *staticConfig) GetLLMConfig() *domain.LLMConfig         { return &s.cfg.LLM }
func (s *staticConfig) Validate() error                         { return nil }

type testServer struct {
	server *Server
	store  *casestore.FileStore
	gen    *MockGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithTimeout(t, 5*time.Second)
}

func newTestServerWithTimeout(t *testing.T, requestTimeout time.Duration) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	cfg := &staticConfig{cfg: domain.Config{
		Server:  domain.ServerConfig{RequestTimeout: requestTimeout},
		Logging: domain.LoggingConfig{Level: "info"},
		MCP:     domain.MCPConfig{ServerVersion: "v0.1.0"},
	}}
	store := casestore.NewFileStore(filepath.Join(t.TempDir(), "pacientes.json"), logger)
	gen := new(MockGenerator)
	session := service.NewSession(store, service.NewRouter(nil, gen, logger), nil, logger)

	return &testServer{
		server: NewServer(cfg, session, store, logger),
		store:  store,
		gen:    gen,
	}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestIntakeAndRecord(t *testing.T) {
	ts := newTestServer(t)
	ts.gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("Procure um ortopedista", nil)

	w := ts.do(http.MethodPost, "/api/v1/patients/Ana%20Souza/intake", `{"symptoms":"dor lombar","exams":"rm"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"analysis":"Procure um ortopedista"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/v1/patients/Ana%20Souza", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rec domain.CaseRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "dor lombar", rec.Symptoms)
	assert.Equal(t, "rm", rec.ExamNotes)
	assert.Equal(t, []string{"Procure um ortopedista"}, rec.Analyses)
}

func TestChat(t *testing.T) {
	ts := newTestServer(t)
	ts.gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("Evite esforço", nil)

	w := ts.do(http.MethodPost, "/api/v1/patients/Ana/chat", `{"question":"Posso correr?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"Evite esforço","source":"generation"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/v1/patients/Ana/transcript", "")
	require.Equal(t, http.StatusOK, w.Code)

	var tr service.Transcript
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.True(t, tr.Known)
	assert.Equal(t, "Bem-vindo de volta, Ana!", tr.Welcome)
	assert.Equal(t, []domain.Interaction{{Question: "Posso correr?", Answer: "Evite esforço"}}, tr.Interactions)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		requestTimeout time.Duration
		setup          func(ts *testServer)
		method         string
		path           string
		body           string
		wantStatus     int
		wantCode       string
	}{
		{
			name:       "blank symptoms",
			method:     http.MethodPost,
			path:       "/api/v1/patients/Ana/intake",
			body:       `{"symptoms":"  "}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.ErrCodeValidation,
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/v1/patients/Ana/chat",
			body:       `{"question":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.ErrCodeValidation,
		},
		{
			name:       "unknown patient",
			method:     http.MethodGet,
			path:       "/api/v1/patients/Carla",
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ErrCodeNotFound,
		},
		{
			name: "generation failure",
			setup: func(ts *testServer) {
				ts.gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota"))
			},
			method:     http.MethodPost,
			path:       "/api/v1/patients/Ana/chat",
			body:       `{"question":"Posso correr?"}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   domain.ErrCodeGeneration,
		},
		{
			name:           "generation deadline",
			requestTimeout: 50 * time.Millisecond,
			setup: func(ts *testServer) {
				ts.gen.On("Complete", mock.Anything, mock.Anything, mock.Anything).
					Run(func(args mock.Arguments) {
						<-args.Get(0).(context.Context).Done()
					}).
					Return("", context.DeadlineExceeded)
			},
			method:     http.MethodPost,
			path:       "/api/v1/patients/Ana/chat",
			body:       `{"question":"Posso correr?"}`,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   domain.ErrCodeTimeout,
		},
		{
			name: "corrupt store",
			setup: func(ts *testServer) {
				_ = os.WriteFile(ts.store.Path(), []byte("[1,2"), 0o644)
			},
			method:     http.MethodGet,
			path:       "/api/v1/patients/Ana",
			wantStatus: http.StatusInternalServerError,
			wantCode:   domain.ErrCodeDataCorruption,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/v2/anything",
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := 5 * time.Second
			if tt.requestTimeout > 0 {
				timeout = tt.requestTimeout
			}
			ts := newTestServerWithTimeout(t, timeout)
			if tt.setup != nil {
				tt.setup(ts)
			}

			w := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			apiErr := decodeAPIError(t, w)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.NotEmpty(t, apiErr.RequestID)
			if tt.wantStatus >= http.StatusInternalServerError {
				assert.Empty(t, apiErr.Details)
			}
		})
	}
}

func TestTranscriptGreeting(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/v1/patients/Carla/transcript", "")
	require.Equal(t, http.StatusOK, w.Code)

	var tr service.Transcript
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.False(t, tr.Known)
	assert.Equal(t, service.GreetingMessage, tr.Greeting)
	assert.Empty(t, tr.Interactions)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.UpsertIntake(ctx, "Ana", domain.Intake{Symptoms: "dor"}, "analise"))
	require.NoError(t, ts.store.AppendInteraction(ctx, "Bruno", domain.Interaction{Question: "Q", Answer: "A"}))

	w := ts.do(http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Record-Count"))

	records, err := casestore.Decode(w.Body)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "dor", records["Ana"].Symptoms)
	assert.Len(t, records["Bruno"].Interactions, 1)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodOptions, "/api/v1/patients/Ana/chat", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
