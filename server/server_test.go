package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-trends/config"
	"book-trends/models"
	"book-trends/services"
	"book-trends/utils"
)

type staticData struct {
	set *models.RecordSet
	err error
}

func (d staticData) Get(context.Context) (*models.RecordSet, error) { return d.set, d.err }

type fakeSnapshotter struct {
	url string
	err error
}

func (f *fakeSnapshotter) Capture(_ context.Context, pageURL string) ([]byte, error) {
	f.url = pageURL
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func testSet() *models.RecordSet {
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	rec := func(d time.Time, rank int, title, nat, gender string) models.Record {
		return models.Record{
			CollectionDate:    d,
			RankPosition:      rank,
			Title:             title,
			Author:            "Autor " + title,
			Price:             decimal.NewFromInt(int64(10 * rank)),
			AuthorNationality: nat,
			AuthorGender:      gender,
			Genre:             "Romance",
			PageCount:         100 + rank,
			PublicationYear:   2000 + rank,
		}
	}
	return models.NewRecordSet([]models.Record{
		rec(d1, 1, "Torto Arado", "Brasil", "Masculino"),
		rec(d1, 2, "Dom Casmurro", "Brasil", "Masculino"),
		rec(d1, 3, "Persuasão", "Reino Unido", "Feminino"),
		rec(d2, 1, "Neuromancer", "Estados Unidos", "Masculino"),
	})
}

func newTestServer(t *testing.T, data DatasetProvider, snaps Snapshotter) *Server {
	t.Helper()
	return newTestServerWithConfig(t, data, snaps, func(*config.Config) {})
}

func newTestServerWithConfig(t *testing.T, data DatasetProvider, snaps Snapshotter, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := &config.Config{
		HTTPAddr:           "127.0.0.1:8501",
		ParquetCompression: "snappy",
		Dashboard:          config.DefaultDashboard(),
	}
	mutate(cfg)
	logger := utils.NopLogger()
	svc := services.NewReportService(logger, services.ReportOptions{TopN: 5, Dashboard: cfg.Dashboard})
	cache, err := services.NewReportCache(svc, 8, logger)
	require.NoError(t, err)

	srv, err := New(cfg, logger, data, cache, snaps)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)
	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Book Trends")
	// default date is the second most recent
	assert.Contains(t, body, "Torto Arado")
	assert.NotContains(t, body, "Neuromancer</td>")
	assert.Contains(t, body, "Posição média por nacionalidade do autor")
	assert.Contains(t, body, `id="dashboard"`)
}

func TestDashboardEmptySelection(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	rec := get(t, srv, "/?date=2024-03-01&gender=Outro")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nenhum livro para os filtros selecionados")
	assert.Contains(t, rec.Body.String(), "Sem dados")
}

func TestBadDate(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	for _, target := range []string{"/?date=01-03-2024", "/api/report?date=ontem", "/export.csv?date=x"} {
		rec := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDataSourceFailure(t *testing.T) {
	srv := newTestServer(t, staticData{err: errors.New("disk gone")}, nil)

	rec := get(t, srv, "/api/report")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReportJSON(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	rec := get(t, srv, "/api/report?date=2024-03-01&nationality=Brasil")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Criteria struct {
			Date        string `json:"date"`
			Nationality string `json:"nationality"`
		} `json:"criteria"`
		Summary struct {
			Count     int    `json:"count"`
			MeanPrice string `json:"mean_price"`
		} `json:"summary"`
		Top struct {
			Rows []map[string]any `json:"rows"`
		} `json:"top"`
		Series []models.Series `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, "2024-03-01", got.Criteria.Date)
	assert.Equal(t, "Brasil", got.Criteria.Nationality)
	assert.Equal(t, 2, got.Summary.Count)
	assert.Equal(t, "15", got.Summary.MeanPrice)
	assert.Len(t, got.Top.Rows, 2)
	assert.Len(t, got.Series, 8)
}

func TestReportETag(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	first := get(t, srv, "/api/report")
	require.Equal(t, http.StatusOK, first.Code)
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)

	second := get(t, srv, "/api/report", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, second.Code)

	other := get(t, srv, "/api/report?gender=Feminino", "If-None-Match", tag)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestOptions(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	rec := get(t, srv, "/api/options/nationality?q=unido")
	require.Equal(t, http.StatusOK, rec.Code)
	var values []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &values))
	assert.Contains(t, values, "Reino Unido")
	assert.NotContains(t, values, "Brasil")

	rec = get(t, srv, "/api/options/date")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &values))
	assert.Equal(t, []string{"2024-03-02", "2024-03-01"}, values)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/options/editora").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/options/gender?limit=abc").Code)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	rec := get(t, srv, "/export.csv?date=2024-03-01&gender=Masculino")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "booktrends_2024-03-01.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "dt,posicao,titulo"))
	assert.Contains(t, lines[1], "Torto Arado")
	assert.Contains(t, lines[2], "Dom Casmurro")
}

func TestExportParquet(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)

	rec := get(t, srv, "/export.parquet?date=2024-03-02")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Greater(t, len(body), 8)
	assert.Equal(t, "PAR1", string(body[:4]))
}

func TestSnapshotDisabled(t *testing.T) {
	srv := newTestServer(t, staticData{set: testSet()}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/snapshot.png").Code)
}

func TestSnapshot(t *testing.T) {
	snaps := &fakeSnapshotter{}
	srv := newTestServer(t, staticData{set: testSet()}, snaps)

	rec := get(t, srv, "/snapshot.png?date=2024-03-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "http://127.0.0.1:8501/?date=2024-03-01", snaps.url)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/snapshot.png?date=nope").Code)

	snaps.err = errors.New("chrome crashed")
	assert.Equal(t, http.StatusBadGateway, get(t, srv, "/snapshot.png").Code)
}

func TestSnapshotIgnoresRequestHost(t *testing.T) {
	snaps := &fakeSnapshotter{}
	srv := newTestServer(t, staticData{set: testSet()}, snaps)

	req := httptest.NewRequest(http.MethodGet, "/snapshot.png?date=2024-03-01&gender=Feminino&extra=1", nil)
	req.Host = "169.254.169.254"
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "internal.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	u, err := url.Parse(snaps.url)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "127.0.0.1:8501", u.Host)
	assert.Equal(t, url.Values{"date": {"2024-03-01"}, "gender": {"Feminino"}}, u.Query())
}

func TestSnapshotUsesConfiguredBaseURL(t *testing.T) {
	snaps := &fakeSnapshotter{}
	srv := newTestServerWithConfig(t, staticData{set: testSet()}, snaps, func(c *config.Config) {
		c.SnapshotBaseURL = "http://dashboard.internal:9000/"
	})

	rec := get(t, srv, "/snapshot.png", "Host", "evil.example")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dashboard.internal:9000/", snaps.url)
}

func TestServeRecordsListenerAddress(t *testing.T) {
	srv := newTestServerWithConfig(t, staticData{set: testSet()}, nil, func(c *config.Config) {
		c.HTTPAddr = "127.0.0.1:0"
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	require.Eventually(t, func() bool {
		return srv.baseURL() == "http://"+l.Addr().String()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, <-done)
}

func TestLocalBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8501": "http://127.0.0.1:8501",
		":8501":          "http://127.0.0.1:8501",
		"0.0.0.0:8501":   "http://127.0.0.1:8501",
		"[::]:8501":      "http://127.0.0.1:8501",
		"localhost:80":   "http://localhost:80",
	}
	for addr, want := range tests {
		assert.Equal(t, want, localBaseURL(addr), addr)
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := parseCriteria(map[string][]string{"date": {"2024-03-01"}, "gender": {"  "}, "nationality": {"Brasil"}})
	require.NoError(t, err)
	require.NotNil(t, c.Date)
	assert.Nil(t, c.Gender)
	require.NotNil(t, c.Nationality)
	assert.Equal(t, "Brasil", *c.Nationality)
}
