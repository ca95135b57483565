package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/brewlens/internal/pipeline"
	"github.com/knowledge-engine/brewlens/internal/storage"
	"github.com/knowledge-engine/brewlens/internal/tfidf"
)

type Server struct {
	Pipeline *pipeline.Pipeline
	Logger   *logrus.Entry
	Router   *http.ServeMux

	validate *validator.Validate
}

func NewServer(p *pipeline.Pipeline, logger *logrus.Entry) *Server {
	s := &Server{
		Pipeline: p,
		Logger:   logger.WithField("component", "api"),
		Router:   http.NewServeMux(),
		validate: validator.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/analyses", s.handleAnalyses)
	s.Router.HandleFunc("/api/v1/analysis", s.handleAnalysis)
	s.Router.HandleFunc("/api/v1/top", s.handleTop)
	s.Router.HandleFunc("/api/v1/similar", s.handleSimilar)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
}

func (s *Server) Start(addr string) error {
	s.Logger.Infof("Starting API Server on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// Requests

type AnalysisRequest struct {
	Source    string            `json:"source" validate:"required_without=Documents"`
	Documents map[string]string `json:"documents" validate:"required_without=Source"`
	GroupBy   string            `json:"group_by" validate:"omitempty,oneof=style decile review"`
	Smoothing string            `json:"smoothing" validate:"omitempty,oneof=raw log"`
	NGram     int               `json:"ngram" validate:"omitempty,min=1,max=5"`
}

// Responses

type ErrorResponse struct {
	Error string `json:"error"`
}

type TopResponse struct {
	ID        string                   `json:"id"`
	K         int                      `json:"k"`
	Key       tfidf.Field              `json:"key"`
	Documents map[string][]tfidf.Score `json:"documents"`
}

type SimilarResponse struct {
	ID       string             `json:"id"`
	Document string             `json:"document"`
	Results  []tfidf.Similarity `json:"results"`
}

type StatusResponse struct {
	Analyses  int64  `json:"analyses"`
	LastError string `json:"last_error,omitempty"`
	Uptime    string `json:"uptime"`
}

// Handlers

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summaries, err := s.Pipeline.Storage.List()
		if err != nil {
			s.fail(w, err)
			return
		}
		if summaries == nil {
			summaries = []storage.Summary{}
		}
		jsonResponse(w, http.StatusOK, summaries)
	case http.MethodPost:
		s.createAnalysis(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	source, err := s.Pipeline.AllowedSource(req.Source)
	if err != nil {
		s.fail(w, err)
		return
	}

	analysis, err := s.Pipeline.Run(r.Context(), pipeline.Request{
		Source:    source,
		Documents: req.Documents,
		GroupBy:   req.GroupBy,
		Smoothing: req.Smoothing,
		NGram:     req.NGram,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, analysis.Summary())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'id' is required"})
		return
	}

	analysis, err := s.Pipeline.Storage.Get(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, analysis)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	id := query.Get("id")
	if id == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'id' is required"})
		return
	}
	k, ok := s.intParam(w, query.Get("k"), s.Pipeline.Config.Engine.TopK)
	if !ok {
		return
	}
	field, err := tfidf.ParseField(query.Get("key"))
	if err != nil {
		s.fail(w, err)
		return
	}

	top, err := s.Pipeline.Top(id, k, field)
	if err != nil {
		s.fail(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, TopResponse{ID: id, K: k, Key: field, Documents: top})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	id, document := query.Get("id"), query.Get("document")
	if id == "" || document == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'id' and 'document' are required"})
		return
	}
	k, ok := s.intParam(w, query.Get("k"), s.Pipeline.Config.Engine.TopK)
	if !ok {
		return
	}

	results, err := s.Pipeline.Similar(id, document, k)
	if err != nil {
		s.fail(w, err)
		return
	}
	if results == nil {
		results = []tfidf.Similarity{}
	}
	jsonResponse(w, http.StatusOK, SimilarResponse{ID: id, Document: document, Results: results})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Pipeline.Snapshot()

	jsonResponse(w, http.StatusOK, StatusResponse{
		Analyses:  stats.Analyses,
		LastError: stats.LastError,
		Uptime:    time.Since(stats.StartTime).Round(time.Second).String(),
	})
}

func (s *Server) intParam(w http.ResponseWriter, raw string, defaultValue int) (int, bool) {
	if raw == "" {
		return defaultValue, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'k' must be an integer"})
		return 0, false
	}
	return value, true
}

// fail maps domain errors onto status codes
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tfidf.ErrInvalidInput), errors.Is(err, pipeline.ErrNoInput):
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		s.Logger.WithError(err).Error("Request failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
