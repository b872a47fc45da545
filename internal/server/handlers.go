package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/hyperjump/artcollector/internal/models"
	"github.com/hyperjump/artcollector/internal/search"
	"github.com/hyperjump/artcollector/internal/ui"
	"go.uber.org/zap"
)

// Form field names shared by the page form and the fields API.
const (
	fieldKeywords       = "keywords"
	fieldCentury        = "century"
	fieldClassification = "classification"
)

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type searchRequest struct {
	Keywords       *string `json:"keywords,omitempty"`
	Century        *string `json:"century,omitempty"`
	Classification *string `json:"classification,omitempty"`
}

type stateResponse struct {
	Loading bool                  `json:"loading"`
	Results []models.ResultRecord `json:"results"`
	Input   models.QueryInput     `json:"input"`
}

type referencesResponse struct {
	Centuries       []models.ReferenceItem `json:"centuries"`
	Classifications []models.ReferenceItem `json:"classifications"`
}

// applyField routes a controlled-input edit to the orchestrator.
func applyField(o *search.Orchestrator, field, value string) bool {
	switch field {
	case fieldKeywords:
		o.SetQueryString(value)
	case fieldCentury:
		o.SetCentury(value)
	case fieldClassification:
		o.SetClassification(value)
	default:
		return false
	}
	return true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	view := ui.PageView{Form: sess.orch.Form(), State: sess.page.Snapshot()}
	s.respondHTML(w, http.StatusOK, "page", func(w io.Writer) error {
		return s.renderer.RenderPage(w, view)
	})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := s.session(w, r)
	if !applyField(sess.orch, req.Field, req.Value) {
		s.respondError(w, http.StatusBadRequest, "unknown field: "+req.Field)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearchRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := s.session(w, r)
	if req.Keywords != nil {
		sess.orch.SetQueryString(*req.Keywords)
	}
	if req.Century != nil {
		sess.orch.SetCentury(*req.Century)
	}
	if req.Classification != nil {
		sess.orch.SetClassification(*req.Classification)
	}

	s.logger.Debug("search request", zap.String("session", sess.id))
	if !sess.orch.Submit(r.Context()) {
		if wantsJSON(r) {
			s.respondError(w, http.StatusConflict, "search already in progress")
			return
		}
		// A plain form post lands on the loading view while the first cycle runs.
		s.respondHTML(w, http.StatusConflict, "loading", s.renderer.RenderLoading)
		return
	}

	if wantsJSON(r) {
		s.respondJSON(w, http.StatusOK, s.state(sess))
		return
	}
	results := sess.page.Snapshot().Results
	s.respondHTML(w, http.StatusOK, "results", func(w io.Writer) error {
		return s.renderer.RenderResults(w, results)
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.state(s.session(w, r)))
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.respondJSON(w, http.StatusOK, referencesResponse{
		Centuries:       sess.orch.CenturyList(),
		Classifications: sess.orch.ClassificationList(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.len()})
}

func (s *Server) state(sess *session) stateResponse {
	st := sess.page.Snapshot()
	return stateResponse{Loading: st.Loading, Results: st.Results, Input: sess.orch.Input()}
}

// decodeSearchRequest reads a JSON body or form values. Absent fields keep
// the session's current value.
func decodeSearchRequest(r *http.Request) (searchRequest, error) {
	var req searchRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	for field, dst := range map[string]**string{
		fieldKeywords:       &req.Keywords,
		fieldCentury:        &req.Century,
		fieldClassification: &req.Classification,
	} {
		if vs, ok := r.PostForm[field]; ok && len(vs) > 0 {
			v := vs[0]
			*dst = &v
		}
	}
	return req, nil
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondHTML renders into a buffer first so a template error still gets a clean 500.
func (s *Server) respondHTML(w http.ResponseWriter, status int, view string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.logger.Error("render failed", zap.String("view", view), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
