package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"book-trends/models"
	"book-trends/services"
	"book-trends/storage"
)

const defaultOptionLimit = 20

// parseCriteria reads date, gender and nationality from the query string.
// Blank values mean "not selected".
func parseCriteria(q url.Values) (models.Criteria, error) {
	var c models.Criteria
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return c, err
		}
		c.Date = models.DateOpt(d)
	}
	c.Gender = models.StringOpt(q.Get("gender"))
	c.Nationality = models.StringOpt(q.Get("nationality"))
	return c, nil
}

// report resolves the request into a Report, writing the error response
// itself when that fails.
func (s *Server) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return nil, false
	}

	set, err := s.data.Get(r.Context())
	if err != nil {
		s.logger.Error("[server] load records: %v", err)
		http.Error(w, "data source unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return s.reports.Report(set, c), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}

	view, err := newDashboardView(s.cfg.Dashboard, rep, r.URL.Query())
	if err != nil {
		s.logger.Error("[server] build view: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, view); err != nil {
		s.logger.Error("[server] template error: %v", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}

	tag := etag(rep)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeJSON(w, rep)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	set, err := s.data.Get(r.Context())
	if err != nil {
		s.logger.Error("[server] load records: %v", err)
		http.Error(w, "data source unavailable", http.StatusInternalServerError)
		return
	}

	limit := defaultOptionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	values, err := services.SearchOptions(services.Options(set), r.PathValue("field"), r.URL.Query().Get("q"), limit)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, values)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName(rep, "csv")+`"`)

	cw, err := storage.NewCSVWriter(w)
	if err == nil {
		err = cw.Write(rep.Records)
	}
	if err != nil {
		s.logger.Error("[server] csv export: %v", err)
	}
}

func (s *Server) handleExportParquet(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName(rep, "parquet")+`"`)

	pw := storage.NewParquetWriter(w, s.cfg.ParquetCompression)
	if err := pw.Write(rep.Records); err != nil {
		s.logger.Error("[server] parquet export: %v", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		http.Error(w, "snapshots are disabled", http.StatusServiceUnavailable)
		return
	}
	if _, err := parseCriteria(r.URL.Query()); err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	pageURL := s.pageURL(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	image, err := s.snapshots.Capture(ctx, pageURL)
	if err != nil {
		s.logger.Error("[server] snapshot: %v", err)
		http.Error(w, "snapshot failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(image)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("[server] json encode error: %v", err)
	}
}

// etag identifies a report by dataset version and resolved selection.
func etag(rep *models.Report) string {
	var b strings.Builder
	for _, p := range []*string{rep.Criteria.Date, rep.Criteria.Gender, rep.Criteria.Nationality} {
		if p != nil {
			b.WriteString(*p)
		}
		b.WriteByte(0)
	}
	return `"` + rep.DatasetVersion + "-" + strconv.FormatUint(xxhash.Sum64String(b.String()), 16) + `"`
}

func exportName(rep *models.Report, ext string) string {
	date := "sem-data"
	if rep.Criteria.Date != nil {
		date = *rep.Criteria.Date
	}
	return "booktrends_" + date + "." + ext
}

// pageURL points at the dashboard served by this process, carrying only the
// selection parameters. The request's Host header is never used: the
// browser must not be steered to another host.
func (s *Server) pageURL(q url.Values) string {
	sel := url.Values{}
	for _, key := range []string{"date", "gender", "nationality"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			sel.Set(key, v)
		}
	}
	u := s.baseURL() + "/"
	if len(sel) > 0 {
		u += "?" + sel.Encode()
	}
	return u
}
