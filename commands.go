package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"book-trends/config"
	"book-trends/models"
	"book-trends/server"
	"book-trends/services"
	"book-trends/snapshot"
	"book-trends/storage"
	"book-trends/utils"
)

// criteriaFlags registers the selection flags shared by every command.
type criteriaFlags struct {
	date, gender, nationality *string
}

func addCriteriaFlags(fs *flag.FlagSet) criteriaFlags {
	return criteriaFlags{
		date:        fs.String("date", "", "collection date YYYY-MM-DD (default: second most recent)"),
		gender:      fs.String("gender", "", "author gender (default: all)"),
		nationality: fs.String("nationality", "", "author nationality (default: all)"),
	}
}

func (f criteriaFlags) criteria() (models.Criteria, error) {
	var c models.Criteria
	if *f.date != "" {
		d, err := models.ParseDate(*f.date)
		if err != nil {
			return c, err
		}
		c.Date = models.DateOpt(d)
	}
	c.Gender = models.StringOpt(*f.gender)
	c.Nationality = models.StringOpt(*f.nationality)
	return c, nil
}

func openLoader(ctx context.Context, cfg *config.Config, logger *utils.Logger, reload bool) (*storage.Loader, error) {
	src, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	loader, err := storage.NewLoader(ctx, src, reload, logger)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return loader, nil
}

func newReportService(cfg *config.Config, logger *utils.Logger) *services.ReportService {
	return services.NewReportService(logger, services.ReportOptions{
		TopN:          cfg.TopN,
		HistogramBins: cfg.HistogramBins,
		Dashboard:     cfg.Dashboard,
	})
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.HTTPAddr, "HTTP listen address")
	noSnapshots := fs.Bool("no-snapshots", false, "disable /snapshot.png")
	_ = fs.Parse(args)
	cfg.HTTPAddr = *addr

	logger.Info("=== Book Trends dashboard starting ===")
	logger.Info("Config: source %s | table %s | reload each render %v | cache %d",
		cfg.DataSource, cfg.SourceTable, cfg.ReloadEachRender, cfg.ReportCacheSize)

	loader, err := openLoader(ctx, cfg, logger, cfg.ReloadEachRender)
	if err != nil {
		return err
	}
	defer loader.Close()

	reports, err := services.NewReportCache(newReportService(cfg, logger), cfg.ReportCacheSize, logger)
	if err != nil {
		return fmt.Errorf("report cache: %w", err)
	}

	var snaps server.Snapshotter
	if !*noSnapshots {
		snaps = snapshot.New(cfg, logger)
	}

	srv, err := server.New(cfg, logger, loader, reports, snaps)
	if err != nil {
		return err
	}
	return serveUntilDone(ctx, srv, logger, nil)
}

// serveUntilDone runs srv until ctx is cancelled. A nil listener listens on
// the configured address.
func serveUntilDone(ctx context.Context, srv *server.Server, logger *utils.Logger, l net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		if l != nil {
			errc <- srv.Serve(l)
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("[server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runReport(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cf := addCriteriaFlags(fs)
	asJSON := fs.Bool("json", false, "print the report as JSON")
	_ = fs.Parse(args)

	c, err := cf.criteria()
	if err != nil {
		return err
	}

	loader, err := openLoader(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer loader.Close()

	set, err := loader.Get(ctx)
	if err != nil {
		return err
	}
	report := newReportService(cfg, logger).Generate(set, c)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	services.NewPrinter(os.Stdout, cfg.Dashboard).Print(report)
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cf := addCriteriaFlags(fs)
	format := fs.String("format", "csv", "csv or parquet")
	out := fs.String("out", "", "output file (default: ./output/booktrends_<date>.<format>)")
	_ = fs.Parse(args)

	if *format != "csv" && *format != "parquet" {
		return fmt.Errorf("unknown export format %q", *format)
	}
	c, err := cf.criteria()
	if err != nil {
		return err
	}

	loader, err := openLoader(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer loader.Close()

	set, err := loader.Get(ctx)
	if err != nil {
		return err
	}
	c = services.Resolve(set, c)
	records := services.Apply(set, c)

	path := *out
	if path == "" {
		date := "sem-data"
		if c.Date != nil {
			date = c.Date.Format(models.DateLayout)
		}
		path = filepath.Join("output", "booktrends_"+date+"."+*format)
	}

	var w storage.RecordWriter
	switch *format {
	case "parquet":
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("parquet: create output dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("parquet: create file %q: %w", path, err)
		}
		defer f.Close()
		w = storage.NewParquetWriter(f, cfg.ParquetCompression)
	default:
		cw, err := storage.NewCSVFileWriter(path)
		if err != nil {
			return err
		}
		w = cw
	}

	if err := w.Write(records); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("[export] %d records written to %s", len(records), path)
	return nil
}

func runSnapshot(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	cf := addCriteriaFlags(fs)
	all := fs.Bool("all", false, "render one PNG per collection date into SNAPSHOT_DIR")
	out := fs.String("out", "", "output file for a single snapshot (default: SNAPSHOT_DIR/dashboard.png)")
	_ = fs.Parse(args)

	if _, err := cf.criteria(); err != nil {
		return err
	}

	loader, err := openLoader(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer loader.Close()

	reports, err := services.NewReportCache(newReportService(cfg, logger), cfg.ReportCacheSize, logger)
	if err != nil {
		return fmt.Errorf("report cache: %w", err)
	}
	srv, err := server.New(cfg, logger, loader, reports, nil)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("snapshot: listen: %w", err)
	}
	srvCtx, stopServer := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- serveUntilDone(srvCtx, srv, logger, l) }()
	defer func() {
		stopServer()
		<-done
	}()

	// -gender and -nationality apply to every captured date
	baseURL := withSelection("http://"+l.Addr().String()+"/", *cf.gender, *cf.nationality)
	snaps := snapshot.New(cfg, logger)

	if *all {
		set, err := loader.Get(ctx)
		if err != nil {
			return err
		}
		paths, err := snaps.CaptureDates(ctx, baseURL, services.Options(set).Dates, cfg.SnapshotDir)
		logger.Info("[snapshot] %d snapshots written to %s", len(paths), cfg.SnapshotDir)
		return err
	}

	pageURL, err := snapshot.DashboardURL(baseURL, *cf.date)
	if err != nil {
		return err
	}

	image, err := snaps.Capture(ctx, pageURL)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Join(cfg.SnapshotDir, "dashboard.png")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("snapshot: create output dir: %w", err)
	}
	if err := os.WriteFile(path, image, 0644); err != nil {
		return errors.Join(fmt.Errorf("snapshot: write %s", path), err)
	}
	logger.Info("[snapshot] Written %s", path)
	return nil
}

func withSelection(pageURL, gender, nationality string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	q := u.Query()
	if gender != "" {
		q.Set("gender", gender)
	}
	if nationality != "" {
		q.Set("nationality", nationality)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
