package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/traitview/internal/cli"
	"github.com/hyperjump/traitview/internal/fileid"
	"github.com/hyperjump/traitview/internal/pager"
	"github.com/hyperjump/traitview/internal/render"
)

const sessionCookie = "traitview_session"

// sessionID returns the caller's session id, issuing a cookie for new callers.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	s.mu.Lock()
	page := s.sessionLocked(id).pager.Page()
	s.mu.Unlock()
	http.Redirect(w, r, "/page/"+strconv.Itoa(page), http.StatusSeeOther)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	id := s.sessionID(w, r)

	s.mu.Lock()
	sess := s.sessionLocked(id)
	sess.pager.SetPage(n)
	view := pageView{
		Headers:    s.projector.Headers(),
		Rows:       sess.surface.rows,
		Page:       sess.surface.page,
		TotalPages: sess.surface.total,
		RowCount:   sess.pager.RowCount(),
		Stale:      s.stale,
	}
	s.mu.Unlock()

	if view.Page != n {
		http.Redirect(w, r, "/page/"+strconv.Itoa(view.Page), http.StatusSeeOther)
		return
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		s.logger.Error("render page failed", zap.Int("page", n), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "op")
	id := s.sessionID(w, r)

	s.mu.Lock()
	p := s.sessionLocked(id).pager
	switch op {
	case "first":
		p.First()
	case "previous", "prev":
		p.Previous()
	case "next":
		p.Next()
	case "last":
		p.Last()
	default:
		s.mu.Unlock()
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("unknown navigation %q", op))
		return
	}
	page := p.Page()
	s.mu.Unlock()

	s.logger.Debug("navigate", zap.String("session", id), zap.String("op", op), zap.Int("page", page))
	http.Redirect(w, r, "/page/"+strconv.Itoa(page), http.StatusSeeOther)
}

// handleGoto serves the page number form. Out-of-range numbers clamp when the
// page is rendered.
func (s *Server) handleGoto(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	http.Redirect(w, r, "/page/"+strconv.Itoa(n), http.StatusSeeOther)
}

func (s *Server) handlePageJSON(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "page must be a number")
		return
	}

	s.mu.Lock()
	p := pager.New(s.rows, s.pageSize, s.projector, nil)
	p.SetPage(n)
	etag := ""
	if s.fingerprint != "" && !s.stale {
		etag = fileid.PageETag(s.fingerprint, p.Page(), s.pageSize)
	}
	if etag != "" && r.Header.Get("If-None-Match") == etag {
		s.mu.Unlock()
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	cells := s.projector.ProjectAll(p.Window())
	out := cli.PageOutput{
		Page:       p.Page(),
		TotalPages: p.TotalPages(),
		RowCount:   p.RowCount(),
		Headers:    s.projector.Headers(),
		Rows:       make([][]cli.CellOut, len(cells)),
	}
	s.mu.Unlock()

	for i, row := range cells {
		out.Rows[i] = cli.Cells(unmarkSeparators(row), render.SentinelMarkers)
	}
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	s.respondJSON(w, http.StatusOK, out)
}

// unmarkSeparators swaps the separator stand-in for a plain text rule.
func unmarkSeparators(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ReplaceAll(cell, separatorMark, "--")
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total := (len(s.rows) + s.pageSize - 1) / s.pageSize
	if total < 1 {
		total = 1
	}
	resp := map[string]interface{}{
		"records":     len(s.rows),
		"page_size":   s.pageSize,
		"total_pages": total,
		"sessions":    len(s.sessions),
		"stale":       s.stale,
		"loaded_at":   s.loadedAt.UTC().Format(time.RFC3339),
		"columns":     s.projector.Headers(),
	}
	if s.fingerprint != "" {
		resp["fingerprint"] = s.fingerprint
	}
	if s.info != nil {
		resp["dataset"] = map[string]interface{}{
			"path":     s.info.Path,
			"format":   s.info.Format,
			"bytes":    s.info.Bytes,
			"modified": s.info.ModTime.UTC().Format(time.RFC3339),
		}
	}
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
