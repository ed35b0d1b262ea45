package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"example.com/fuzzy-inference/core/inference"
	"example.com/fuzzy-inference/core/server"
)

const powerModel = `{"model": {
  "input": {"name": "amount", "range": [0, 6], "terms": {
    "low": {"type": "tri", "params": [0, 0, 3]},
    "high": {"type": "tri", "params": [3, 6, 6]}}},
  "output": {"name": "power", "range": [0, 100], "terms": {
    "weak": {"type": "tri", "params": [0, 0, 50]},
    "full": {"type": "tri", "params": [0, 50, 100]}}},
  "rules": [
    {"if": {"amount": "high"}, "then": {"power": "full"}},
    {"if": {"amount": "low"}, "then": {"power": "weak"}}
  ]}}`

func writeModel(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func newServer(t *testing.T, cfg server.Config) (*server.Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "power.json")
	writeModel(t, path, powerModel)
	cfg.ModelFile = path
	s, err := server.New(zaptest.NewLogger(t), cfg)
	require.NoError(t, err)
	return s, path
}

type response struct {
	ID         string             `json:"id"`
	Output     string             `json:"output"`
	Value      float64            `json:"value"`
	Membership []float64          `json:"membership"`
	XRange     []float64          `json:"x_range"`
	Error      string             `json:"error"`
	Stages     map[string]float64 `json:"stages"`
	Fired      []struct {
		Rule  string  `json:"rule"`
		Truth float64 `json:"truth"`
	} `json:"fired"`
	Rules []struct {
		Rule  string  `json:"rule"`
		Truth float64 `json:"truth"`
	} `json:"rules"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestNewRequiresModel(t *testing.T) {
	_, err := server.New(zaptest.NewLogger(t), server.Config{})
	assert.Error(t, err)
	_, err = server.New(zaptest.NewLogger(t), server.Config{ModelFile: filepath.Join(t.TempDir(), "none.json")})
	assert.Error(t, err)
}

func TestInfer(t *testing.T) {
	s, _ := newServer(t, server.Config{})
	h := s.Handler()

	code, resp := do(t, h, http.MethodPost, "/v1/infer", `{"inputs": {"amount": 6}}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "power", resp.Output)
	assert.InDelta(t, 50.0, resp.Value, 1e-6)
	require.Len(t, resp.Fired, 1)
	assert.Equal(t, "IF amount=high THEN power=full", resp.Fired[0].Rule)
	assert.InDelta(t, 1.0, resp.Fired[0].Truth, 1e-12)
	assert.Empty(t, resp.Membership)

	code, resp = do(t, h, http.MethodPost, "/v1/infer", `{
		"inputs": {"amount": 6},
		"output": "power",
		"mechanism": "maxmin",
		"implication": "larsen",
		"aggregation": "probor",
		"defuzzifier": "mom",
		"resolution": 101,
		"curve": true
	}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Len(t, resp.Membership, 101)
	assert.Len(t, resp.XRange, 101)
	assert.InDelta(t, 50.0, resp.Value, 1e-9)
}

const (
	battleSets = `items:few:triangular:0,0,6
items:many:triangular:0,6,6
enemies:few:triangular:0,0,10
enemies:many:triangular:0,10,10
strength:weak:triangular:0,0,10
strength:strong:triangular:0,10,10
readiness:low:triangular:0,0,50
readiness:high:triangular:50,100,100
`
	battleRules = `IF items=many THEN strength=strong
IF items=few THEN strength=weak
IF strength=strong AND enemies=few THEN readiness=high
IF strength=weak THEN readiness=low
`
)

func TestInferChained(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "battle.sets"), battleSets)
	writeModel(t, filepath.Join(dir, "battle.rules"), battleRules)
	s, err := server.New(zaptest.NewLogger(t), server.Config{ModelFile: filepath.Join(dir, "battle.rules")})
	require.NoError(t, err)

	code, resp := do(t, s.Handler(), http.MethodPost, "/v1/infer",
		`{"inputs": {"items": 6, "enemies": 0}, "resolution": 1001}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "readiness", resp.Output)
	require.Contains(t, resp.Stages, "strength")
	assert.InDelta(t, 6.67, resp.Stages["strength"], 1e-9)
	require.Len(t, resp.Fired, 2)
	assert.Equal(t, "IF strength=strong AND enemies=few THEN readiness=high", resp.Fired[0].Rule)
	assert.InDelta(t, 0.667, resp.Fired[0].Truth, 1e-9)
	assert.InDelta(t, 0.333, resp.Fired[1].Truth, 1e-9)

	code, resp = do(t, s.Handler(), http.MethodPost, "/v1/infer",
		`{"inputs": {"items": 0, "strength": 10, "enemies": 0}, "resolution": 1001}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Empty(t, resp.Stages, "a given intermediate value is not inferred")
	require.Len(t, resp.Fired, 1)
	assert.InDelta(t, 1.0, resp.Fired[0].Truth, 1e-12)
}

func TestNewRejectsRuleCycle(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "loop.sets"), battleSets)
	writeModel(t, filepath.Join(dir, "loop.rules"),
		"IF strength=strong THEN readiness=high\nIF readiness=high THEN strength=strong\n")
	_, err := server.New(zaptest.NewLogger(t), server.Config{ModelFile: filepath.Join(dir, "loop.rules")})
	assert.ErrorIs(t, err, inference.ErrRuleCycle)
}

func TestInferErrors(t *testing.T) {
	s, _ := newServer(t, server.Config{})
	h := s.Handler()

	for _, tc := range []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"bad json", http.MethodPost, `{"inputs": `, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"input": {"amount": 1}}`, http.StatusBadRequest},
		{"unknown mechanism", http.MethodPost, `{"inputs": {"amount": 1}, "mechanism": "fancy"}`, http.StatusBadRequest},
		{"unknown defuzzifier", http.MethodPost, `{"inputs": {"amount": 1}, "defuzzifier": "lom"}`, http.StatusBadRequest},
		{"resolution", http.MethodPost, `{"inputs": {"amount": 1}, "resolution": 1}`, http.StatusBadRequest},
		{"negative resolution", http.MethodPost, `{"inputs": {"amount": 1}, "resolution": -8}`, http.StatusBadRequest},
		{"huge resolution", http.MethodPost, `{"inputs": {"amount": 1}, "resolution": 4611686018427387904}`, http.StatusBadRequest},
		{"huge composition resolution", http.MethodPost,
			`{"inputs": {"amount": 1}, "mechanism": "maxmin", "resolution": 10001}`, http.StatusBadRequest},
		{"unknown output", http.MethodPost, `{"inputs": {"amount": 1}, "output": "torque"}`, http.StatusUnprocessableEntity},
		{"method", http.MethodGet, ``, http.StatusMethodNotAllowed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := do(t, h, tc.method, "/v1/infer", tc.body)
			assert.Equal(t, tc.status, code)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.ID)
		})
	}
}

func TestTruth(t *testing.T) {
	s, _ := newServer(t, server.Config{})
	code, resp := do(t, s.Handler(), http.MethodPost, "/v1/truth", `{"inputs": {"amount": 4.5}}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.Len(t, resp.Rules, 2)
	assert.InDelta(t, 0.5, resp.Rules[0].Truth, 1e-12)
	assert.InDelta(t, 0.0, resp.Rules[1].Truth, 1e-12)
}

func TestModelAndHealth(t *testing.T) {
	s, _ := newServer(t, server.Config{})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/model", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var m struct {
		Inputs    []string `json:"inputs"`
		Output    string   `json:"output"`
		Variables []struct {
			Name  string     `json:"name"`
			Range [2]float64 `json:"range"`
			Terms []struct {
				Name   string    `json:"name"`
				Type   string    `json:"type"`
				Params []float64 `json:"params"`
			} `json:"terms"`
		} `json:"variables"`
		Rules []string `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, []string{"amount"}, m.Inputs)
	assert.Equal(t, "power", m.Output)
	require.Len(t, m.Variables, 2)
	assert.Equal(t, "amount", m.Variables[0].Name)
	assert.Equal(t, [2]float64{0, 6}, m.Variables[0].Range)
	require.Len(t, m.Variables[0].Terms, 2)
	assert.Equal(t, "high", m.Variables[0].Terms[0].Name)
	assert.Equal(t, "tri", m.Variables[0].Terms[0].Type)
	assert.Equal(t, []float64{3, 6, 6}, m.Variables[0].Terms[0].Params)
	assert.Len(t, m.Rules, 2)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestReloadKeepsModelOnFailure(t *testing.T) {
	s, path := newServer(t, server.Config{})
	require.Len(t, s.Model().Rules, 2)

	writeModel(t, path, `{"model": `)
	assert.Error(t, s.Reload())
	assert.Len(t, s.Model().Rules, 2)

	writeModel(t, path, strings.Replace(powerModel,
		`{"if": {"amount": "low"}, "then": {"power": "weak"}}`, `{"if": {"amount": "low"}, "then": {"power": "weak"}},
    {"if": {"amount": "high"}, "then": {"power": "weak"}}`, 1))
	require.NoError(t, s.Reload())
	assert.Len(t, s.Model().Rules, 3)
}

func TestServeAndWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, path := newServer(t, server.Config{WatchModel: true})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	tr := &http.Transport{DisableKeepAlives: true}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}
	url := "http://" + ln.Addr().String()

	resp, err := client.Post(url+"/v1/infer", "application/json",
		bytes.NewReader([]byte(`{"inputs": {"amount": 6}}`)))
	require.NoError(t, err)
	var r response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 50.0, r.Value, 1e-6)

	writeModel(t, path, strings.Replace(powerModel,
		`{"if": {"amount": "low"}, "then": {"power": "weak"}}`, `{"if": {"amount": "low"}, "then": {"power": "weak"}},
    {"if": {"amount": "high"}, "then": {"power": "weak"}}`, 1))
	require.Eventually(t, func() bool {
		return len(s.Model().Rules) == 3
	}, 5*time.Second, 20*time.Millisecond)

	tr.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
