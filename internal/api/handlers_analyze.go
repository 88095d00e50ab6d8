package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/headingmap/internal/outline"
	"github.com/dgallion1/headingmap/internal/parser"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	s.respondAnalysis(w, req)
}

// handleAnalyzeUpload accepts a multipart "file" field plus optional
// require_h1_as_first_heading / warn_on_heading_level_skip form values.
func (s *Server) handleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxDocumentBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxDocumentBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxDocumentBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxDocumentBytes), http.StatusRequestEntityTooLarge)
		return
	}

	req := AnalyzeRequest{Filename: filename, Text: string(data), Config: &RuleOverrides{}}
	if v := r.FormValue("require_h1_as_first_heading"); v != "" {
		b := v == "true"
		req.Config.RequireH1AsFirstHeading = &b
	}
	if v := r.FormValue("warn_on_heading_level_skip"); v != "" {
		b := v == "true"
		req.Config.WarnOnHeadingLevelSkip = &b
	}
	s.respondAnalysis(w, req)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	a, ok := s.analyze(w, req)
	if !ok {
		return
	}

	title := req.Filename
	if title == "" {
		title = "Outline"
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(outline.Markdown(title, a.Forest)))
	case "html":
		out, err := outline.HTML(title, a.Forest)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(out))
	default:
		jsonError(w, fmt.Sprintf("unsupported format: %s", format), http.StatusBadRequest)
	}
}

func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (AnalyzeRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxDocumentBytes+64*1024) // room for JSON framing

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxDocumentBytes), http.StatusRequestEntityTooLarge)
			return req, false
		}
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if int64(len(req.Text)) > s.cfg.MaxDocumentBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxDocumentBytes), http.StatusRequestEntityTooLarge)
		return req, false
	}
	if req.Filename != "" {
		req.Filename = sanitizeFilename(req.Filename)
		if !parser.IsSupportedExtension(req.Filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(req.Filename)), http.StatusBadRequest)
			return req, false
		}
	}
	return req, true
}

func (s *Server) analyze(w http.ResponseWriter, req AnalyzeRequest) (pipeline.Analysis, bool) {
	cfg := req.Config.Apply(s.cfg.Validation())
	a, err := pipeline.AnalyzeDocument(s.orchestrator.Extractor(), req.Text, cfg)
	a.Path = req.Filename
	if err != nil {
		a.Error = err.Error()
	}
	if stats := s.orchestrator.Stats(); stats != nil {
		stats.Record(a)
	}
	if err != nil {
		s.log.Warn("analysis failed", "path", req.Filename, "error", err)
		jsonError(w, "analysis failed: "+err.Error(), http.StatusUnprocessableEntity)
		return a, false
	}
	return a, true
}

func (s *Server) respondAnalysis(w http.ResponseWriter, req AnalyzeRequest) {
	a, ok := s.analyze(w, req)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnalyzeResponse{
		Filename:    req.Filename,
		Occurrences: a.Occurrences,
		Forest:      a.Forest,
		Outline:     nonNilEntries(outline.Entries(a.Forest)),
		Warnings:    a.Warnings,
		DurationMs:  a.DurationMs,
	})
}

func (s *Server) handleDialects(w http.ResponseWriter, r *http.Request) {
	catalog := s.orchestrator.Extractor().Catalog()
	out := make([]DialectInfo, 0, len(catalog))
	for _, rule := range catalog {
		out = append(out, DialectInfo{Name: rule.Name, Dialect: rule.Dialect, Region: rule.Region.String()})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"dialects": out})
}

func nonNilEntries(e []outline.Entry) []outline.Entry {
	if e == nil {
		return []outline.Entry{}
	}
	return e
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
