package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/fuzzy-inference/core/fuzzy"
	"example.com/fuzzy-inference/core/inference"
)

const (
	endpointInfer  = "/v1/infer"
	endpointTruth  = "/v1/truth"
	endpointModel  = "/v1/model"
	endpointHealth = "/healthz"
)

type inferRequest struct {
	Inputs      map[string]float64    `json:"inputs"`
	Output      string                `json:"output"`
	Mechanism   inference.Mechanism   `json:"mechanism"`
	Implication inference.Implication `json:"implication"`
	Aggregation inference.Aggregation `json:"aggregation"`
	Defuzzifier inference.Defuzzifier `json:"defuzzifier"`
	Resolution  int                   `json:"resolution"`
	Curve       bool                  `json:"curve"`
}

type ruleTruth struct {
	Rule  string  `json:"rule"`
	Truth float64 `json:"truth"`
}

type inferResponse struct {
	ID     string      `json:"id"`
	Output string      `json:"output"`
	Value  float64     `json:"value"`
	Fired  []ruleTruth `json:"fired"`
	// Stages holds the inferred values of intermediate variables.
	Stages     map[string]float64 `json:"stages,omitempty"`
	Membership []float64          `json:"membership,omitempty"`
	XRange     []float64          `json:"x_range,omitempty"`
}

type truthRequest struct {
	Inputs map[string]float64 `json:"inputs"`
	Output string             `json:"output"`
}

type truthResponse struct {
	ID    string      `json:"id"`
	Rules []ruleTruth `json:"rules"`
}

type termSummary struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Params []float64 `json:"params"`
}

type variableSummary struct {
	Name  string        `json:"name"`
	Range [2]float64    `json:"range"`
	Terms []termSummary `json:"terms"`
}

type modelResponse struct {
	Inputs    []string          `json:"inputs"`
	Output    string            `json:"output"`
	Variables []variableSummary `json:"variables"`
	Rules     []string          `json:"rules"`
	LoadedAt  time.Time         `json:"loaded_at"`
}

type errorResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// requestError carries the status code a failed request is answered with.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{status: http.StatusBadRequest, err: err}
}

// statusOf maps an engine error to an HTTP status.
func statusOf(err error) int {
	var rerr *requestError
	switch {
	case errors.As(err, &rerr):
		return rerr.status
	case errors.Is(err, fuzzy.ErrUnknownVariable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inference.ErrInvalidResolution):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type handlerFunc func(r *http.Request, id string) (any, error)

// Handler returns the HTTP handler serving the inference API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(endpointInfer, s.endpoint(endpointInfer, http.MethodPost, s.handleInfer))
	mux.Handle(endpointTruth, s.endpoint(endpointTruth, http.MethodPost, s.handleTruth))
	mux.Handle(endpointModel, s.endpoint(endpointModel, http.MethodGet, s.handleModel))
	mux.Handle(endpointHealth, s.endpoint(endpointHealth, http.MethodGet, s.handleHealth))
	return mux
}

func (s *Server) endpoint(name, method string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		s.mtrcs.reqsReceived.WithLabelValues(name).Inc()
		w.Header().Set("X-Request-Id", id)

		var (
			resp any
			err  error
		)
		if r.Method != method {
			w.Header().Set("Allow", method)
			err = &requestError{
				status: http.StatusMethodNotAllowed,
				err:    fmt.Errorf("method %s not allowed", r.Method),
			}
		} else {
			resp, err = h(r, id)
		}

		status := http.StatusOK
		if err != nil {
			status = statusOf(err)
			resp = errorResponse{ID: id, Error: err.Error()}
			s.mtrcs.reqsFailed.WithLabelValues(name).Inc()
		}
		writeJSON(w, status, resp)

		fields := []zap.Field{
			zap.String("id", id),
			zap.String("endpoint", name),
			zap.String("from", r.RemoteAddr),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			s.log.Info("request failed", append(fields, zap.Error(err))...)
		} else {
			s.log.Debug("request served", fields...)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Errorf("malformed request body: %w", err))
	}
	return nil
}

// outputOf picks the output variable of a request: the requested one, the
// configured one, or the one declared by the model.
func (s *Server) outputOf(requested string, snap *snapshot) string {
	switch {
	case requested != "":
		return requested
	case s.cfg.OutputVariable != "":
		return s.cfg.OutputVariable
	default:
		return snap.model.Output
	}
}

func ruleTruths(rts []inference.RuleTruth) []ruleTruth {
	res := make([]ruleTruth, 0, len(rts))
	for _, rt := range rts {
		res = append(res, ruleTruth{Rule: rt.Rule.String(), Truth: rt.Truth})
	}
	return res
}

func (s *Server) handleInfer(r *http.Request, id string) (any, error) {
	var req inferRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	snap := s.snap.Load()
	q := inference.Query{
		Output:      s.outputOf(req.Output, snap),
		Mechanism:   req.Mechanism,
		Implication: req.Implication,
		Aggregation: req.Aggregation,
		Defuzzifier: req.Defuzzifier,
		Resolution:  req.Resolution,
	}
	if q.Resolution == 0 {
		q.Resolution = s.cfg.Resolution
	}
	if q.Output == "" {
		return nil, fuzzy.ConfigErrorf("output variable", fuzzy.ErrUnknownVariable,
			"none requested and the model has no single output")
	}
	stages, err := snap.engine.InferChain(req.Inputs, q)
	if err != nil {
		return nil, err
	}
	res := stages[len(stages)-1].Result
	resp := inferResponse{
		ID:     id,
		Output: q.Output,
		Value:  res.Value,
		Fired:  ruleTruths(res.Fired),
	}
	if len(stages) > 1 {
		resp.Stages = make(map[string]float64, len(stages)-1)
		for _, st := range stages[:len(stages)-1] {
			resp.Stages[st.Output] = st.Value
		}
	}
	if req.Curve {
		resp.Membership = res.Membership
		resp.XRange = res.XRange
	}
	return resp, nil
}

func (s *Server) handleTruth(r *http.Request, id string) (any, error) {
	var req truthRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	snap := s.snap.Load()
	return truthResponse{
		ID:    id,
		Rules: ruleTruths(snap.engine.RuleTruthLevels(req.Inputs, req.Output)),
	}, nil
}

func (s *Server) handleModel(*http.Request, string) (any, error) {
	snap := s.snap.Load()
	m := snap.model
	resp := modelResponse{
		Inputs:    m.Inputs,
		Output:    m.Output,
		Variables: make([]variableSummary, 0, len(m.Variables)),
		Rules:     make([]string, 0, len(m.Rules)),
		LoadedAt:  snap.loadedAt,
	}
	for _, name := range variableNames(m.Variables) {
		v := m.Variables[name]
		vs := variableSummary{Name: v.Name, Range: [2]float64{v.Min, v.Max}}
		for _, t := range v.TermNames() {
			set, _ := v.Term(t)
			vs.Terms = append(vs.Terms, termSummary{
				Name:   t,
				Type:   set.Func.Shape.String(),
				Params: set.Func.Params(),
			})
		}
		resp.Variables = append(resp.Variables, vs)
	}
	for _, r := range m.Rules {
		resp.Rules = append(resp.Rules, r.String())
	}
	return resp, nil
}

func (s *Server) handleHealth(*http.Request, string) (any, error) {
	snap := s.snap.Load()
	return map[string]any{
		"status": "ok",
		"rules":  len(snap.model.Rules),
	}, nil
}
