package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorios22/twitter-news-classifier/internal/agent"
	"github.com/lorios22/twitter-news-classifier/internal/domain"
	"github.com/lorios22/twitter-news-classifier/internal/memory"
	"github.com/lorios22/twitter-news-classifier/internal/service"
	"github.com/lorios22/twitter-news-classifier/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "test-key-123"

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(ctx context.Context, item *domain.ContentItem) (*domain.AnalysisRun, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrInvalidItem, err)
	}
	return &domain.AnalysisRun{
		RunID:         uuid.New(),
		ContentItemID: item.ID,
		Outcomes:      map[string]domain.AgentOutcome{},
		Consolidation: &domain.ConsolidationResult{FinalScore: 7},
		OverallStatus: domain.RunSuccess,
		QualityLevel:  domain.QualityGood,
		StartedAt:     time.Now().UTC(),
	}, nil
}

type testEnv struct {
	app    *App
	memory *memory.Store
	jobs   *service.BatchJobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	reg := agent.NewRegistry()
	require.NoError(t, reg.Register(agent.Task{
		Name:    "context_evaluator",
		Weight:  0.5,
		Group:   domain.GroupIndependent,
		Timeout: time.Second,
		Invoker: domain.InvokerFunc(func(context.Context, domain.Invocation) (string, error) { return "{}", nil }),
	}))

	mem := memory.NewStore(store.NewMemoryKV(), logger)
	runs := store.NewFileRunRepository(t.TempDir())
	manager := service.NewBatchManager(fakeAnalyzer{}, runs, logger)
	jobs := service.NewBatchJobs(manager, logger)
	t.Cleanup(jobs.Stop)

	policy := domain.DefaultRetryPolicy()
	policy.RetryDelay = time.Millisecond
	policy.BatchPause = 0

	app := NewApp(Deps{
		Analyzer:       fakeAnalyzer{},
		Jobs:           jobs,
		Runs:           runs,
		Memory:         mem,
		Pruner:         service.NewMemoryPruner(mem, 0, logger),
		Plan:           reg.Plan(),
		Policy:         policy,
		APIKeys:        []string{testKey},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, logger)
	t.Cleanup(app.Close)
	return &testEnv{app: app, memory: mem, jobs: jobs}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	e.app.Router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.EqualValues(t, 2, body["request_count"])
	assert.Contains(t, body, "build")
}

func TestV1_RequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/agents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.EqualValues(t, 1, env.app.Metrics.Errors.Load())
}

func TestV1_RateLimitedPerClient(t *testing.T) {
	logger := zap.NewNop()
	mem := memory.NewStore(store.NewMemoryKV(), logger)
	app := NewApp(Deps{
		Memory:         mem,
		Plan:           agent.NewRegistry().Plan(),
		RateLimitRPS:   0.0001,
		RateLimitBurst: 1,
	}, logger)
	defer app.Close()

	codes := make([]int, 0, 2)
	for _, addr := range []string{"10.0.0.1:40000", "10.0.0.1:40001"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestListAgents(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Agents      []agent.TaskInfo `json:"agents"`
		Independent int              `json:"independent"`
		Dependent   int              `json:"dependent"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Agents, 1)
	assert.Equal(t, "context_evaluator", body.Agents[0].Name)
	assert.Equal(t, 1, body.Independent)
	assert.Equal(t, 0, body.Dependent)
}

func TestAnalyze_SavesRun(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/analyze", `{"id": "1", "text": "BTC ETF inflows hit a record"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var run domain.AnalysisRun
	decode(t, rec, &run)
	assert.Equal(t, "1", run.ContentItemID)
	assert.Equal(t, 7.0, run.FinalScore())

	rec = env.do(t, http.MethodGet, "/v1/runs/"+run.RunID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stored domain.AnalysisRun
	decode(t, rec, &stored)
	assert.Equal(t, run.RunID, stored.RunID)
}

func TestAnalyze_BadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"id": `},
		{"missing text", `{"id": "1"}`},
		{"missing id", `{"text": "hello"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRuns_NotFound(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/runs/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/runs/not-a-uuid", "").Code)
}

func TestBatches_SubmitAndPoll(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/batches/", `{
		"items": [{"id": "1", "text": "first"}, {"id": "2", "text": "second"}],
		"policy": {"batch_size": 1, "max_retries": 0}
	}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitted struct {
		BatchID uuid.UUID `json:"batch_id"`
		Items   int       `json:"items"`
	}
	decode(t, rec, &submitted)
	assert.Equal(t, 2, submitted.Items)

	require.Eventually(t, func() bool {
		job, err := env.jobs.Get(submitted.BatchID)
		return err == nil && job.State == service.JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/v1/batches/"+submitted.BatchID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var job service.BatchJob
	decode(t, rec, &job)
	require.NotNil(t, job.Report)
	assert.Equal(t, 2, job.Report.Stats.Succeeded)
	assert.Equal(t, 1, job.Report.Policy.BatchSize)
	assert.Equal(t, 0, job.Report.Policy.MaxRetries)
}

func TestBatches_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"no items", `{"items": []}`},
		{"negative retries", `{"items": [{"id": "1", "text": "x"}], "policy": {"max_retries": -1}}`},
		{"zero batch size", `{"items": [{"id": "1", "text": "x"}], "policy": {"batch_size": 0}}`},
		{"unbounded retry delay", `{"items": [{"id": "1", "text": "x"}], "policy": {"retry_delay_seconds": 1e300}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/v1/batches/", tt.body).Code)
		})
	}

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/batches/"+uuid.NewString(), "").Code)
}

func TestMemoryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.memory.Update(ctx, domain.NamespaceBanTerms, "42", func(f domain.Record) error {
		f["violations"] = map[string]any{"scam": 3, "wagmi": 1}
		return nil
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/v1/memory/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats memory.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.Namespaces[string(domain.NamespaceBanTerms)])

	rec = env.do(t, http.MethodGet, "/v1/memory/ban_term_stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var export struct {
		Count   int                      `json:"count"`
		Records map[string]domain.Record `json:"records"`
	}
	decode(t, rec, &export)
	assert.Equal(t, 1, export.Count)
	assert.Contains(t, export.Records, "ban_term_stats:42")

	rec = env.do(t, http.MethodGet, "/v1/memory/ban_term_stats/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one map[string]any
	decode(t, rec, &one)
	assert.Equal(t, true, one["exists"])

	rec = env.do(t, http.MethodGet, "/v1/reports/violated-terms?top=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var terms struct {
		Items []memory.TermCount `json:"items"`
	}
	decode(t, rec, &terms)
	require.Len(t, terms.Items, 1)
	assert.Equal(t, memory.TermCount{Term: "scam", Count: 3}, terms.Items[0])

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/memory/unknown", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/memory/unknown/42", "").Code)
}

func TestMemoryPrune(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/memory/prune", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Removed int `json:"removed"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 0, body.Removed)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/v1/memory/prune", `{"days": -1}`).Code)
}

func TestReports_QueryValidation(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/v1/reports/trending",
		"/v1/reports/low-quality-authors",
		"/v1/reports/violated-terms",
		"/v1/reports/latency-flags",
	} {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, "").Code, path)
	}

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/reports/trending?hours=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/reports/low-quality-authors?min_count=abc", "").Code)
}
