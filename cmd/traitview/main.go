// Package main is the traitview CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/traitview/internal/cli"
	"github.com/hyperjump/traitview/internal/config"
	"github.com/hyperjump/traitview/internal/dataset"
	"github.com/hyperjump/traitview/internal/export"
	"github.com/hyperjump/traitview/internal/fileid"
	"github.com/hyperjump/traitview/internal/memo"
	"github.com/hyperjump/traitview/internal/models"
	"github.com/hyperjump/traitview/internal/pager"
	"github.com/hyperjump/traitview/internal/render"
	"github.com/hyperjump/traitview/internal/server"
	"github.com/hyperjump/traitview/internal/traits"
	"github.com/hyperjump/traitview/internal/watcher"
	"github.com/hyperjump/traitview/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/traitview/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When neither exists at the default path, built-in defaults are returned so that
// every setting can come from flags.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return defaultConfig(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

// flagsFirst moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "traitview import in.json out.db -debug"
// would otherwise leave -debug unparsed.
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve", "server":
		runServe()
	case "render":
		runRender()
	case "export":
		runExport()
	case "status":
		runStatus()
	case "import":
		runImport()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("traitview version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are shared by every command that reads a dataset.
type commonFlags struct {
	configPath *string
	debug      *bool
	dataset    *string
	format     *string
	pageSize   *int
	extra      *string
	trait      *string
	search     *string
	asIs       *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		dataset:    fs.String("dataset", "", "dataset path (overrides config)"),
		format:     fs.String("format", "", "dataset format: json, jsonl or sqlite (default: from extension)"),
		pageSize:   fs.Int("page-size", 0, "rows per page (overrides config)"),
		extra:      fs.String("extra", "", "comma-separated extra fields (overrides config)"),
		trait:      fs.String("trait", "", "comma-separated trait fields (overrides config)"),
		search:     fs.String("search", "", "comma-separated searched fields (overrides config)"),
		asIs:       fs.String("as-is", "", "comma-separated as-is fields (overrides config)"),
	}
}

// apply overlays flag values on cfg.
func (f *commonFlags) apply(cfg *config.Config) {
	if *f.dataset != "" {
		cfg.Dataset.Path = *f.dataset
	}
	if *f.format != "" {
		cfg.Dataset.Format = *f.format
	}
	if *f.pageSize > 0 {
		cfg.Pager.PageSize = *f.pageSize
	}
	overrideList(&cfg.Fields.Extra, f.extra)
	overrideList(&cfg.Fields.Trait, f.trait)
	overrideList(&cfg.Fields.Search, f.search)
	overrideList(&cfg.Fields.AsIs, f.asIs)
	cfg.Debug = cfg.Debug || *f.debug
}

// overrideList replaces dst with the comma-separated names in value when it was given.
func overrideList(dst *[]string, value *string) {
	if value == nil || *value == "" {
		return
	}
	var names []string
	for _, name := range strings.Split(*value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	*dst = names
}

// setup loads config, applies flags and builds the logger.
func setup(f *commonFlags) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

// surfaceKind selects how projected cells are marked up.
type surfaceKind int

const (
	htmlSurface surfaceKind = iota
	textSurface
)

// Components holds the loaded dataset and the renderer for one surface.
type Components struct {
	Rows        []*models.Record
	Projector   *render.Projector
	Info        *dataset.Info
	Fingerprint string
}

func initializeComponents(ctx context.Context, cfg *config.Config, kind surfaceKind, logger *zap.Logger) (*Components, error) {
	if cfg.Dataset.Path == "" {
		return nil, dataset.ErrEmptyPath
	}
	start := time.Now()
	rows, err := dataset.LoadAll(ctx, cfg.Dataset.Path, cfg.Dataset.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	info, err := dataset.Stat(cfg.Dataset.Path, cfg.Dataset.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset: %w", err)
	}
	fp, err := fileid.Fingerprint(cfg.Dataset.Path)
	if err != nil {
		return nil, err
	}

	var opts traits.Options
	switch kind {
	case textSurface:
		opts = cli.TextTraitOptions(cfg.TraitOptions())
	default:
		opts = server.TraitOptions(cfg.TraitOptions())
	}
	var projOpts []render.ProjectorOption
	if cfg.Debug {
		projOpts = append(projOpts, render.WithObserver(func(slot memo.Slot, field string) {
			logger.Debug("derived value computed", zap.Stringer("slot", slot), zap.String("field", field))
		}))
	}
	proj := render.NewProjector(cfg.FieldGroups(), render.SentinelMarkers, traits.NewFormatter(opts), projOpts...)

	logger.Info("dataset loaded",
		zap.String("path", info.Path),
		zap.String("format", info.Format),
		zap.Int("records", len(rows)),
		zap.String("fingerprint", fp),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Components{Rows: rows, Projector: proj, Info: info, Fingerprint: fp}, nil
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommonFlags(fs)
	port := fs.Int("port", 0, "listen port (overrides config)")
	watch := fs.Bool("watch", false, "reload when the dataset file changes")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(common)
	defer logger.Sync()
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *watch {
		cfg.Watch.Enabled = true
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
	)

	components, err := initializeComponents(context.Background(), cfg, htmlSurface, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	markup := server.Markup{
		Highlight: cfg.HighlightMarkers(),
		LineBreak: cfg.Markup.LineBreak,
		Separator: cfg.Markup.Separator,
	}
	srv := server.NewServer(
		components.Rows,
		components.Projector,
		markup,
		cfg.Pager.PageSize,
		&cfg.Server,
		logger,
		server.WithDataset(components.Info, components.Fingerprint),
	)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchOpts := []watcher.WatcherOption{}
		if cfg.Debug {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(cfg.Dataset.Path, func(path string, op fsnotify.Op) {
			reloadDataset(watchCtx, srv, cfg, logger, op)
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// reloadDataset swaps in the dataset after a change on disk. Failed reloads
// leave the previous rows in place, flagged stale.
func reloadDataset(ctx context.Context, srv *server.Server, cfg *config.Config, logger *zap.Logger, op fsnotify.Op) {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		if _, err := os.Stat(cfg.Dataset.Path); err != nil {
			srv.MarkStale(op.String())
			return
		}
	}
	rows, err := dataset.LoadAll(ctx, cfg.Dataset.Path, cfg.Dataset.Format)
	if err != nil {
		logger.Warn("dataset reload failed", zap.String("path", cfg.Dataset.Path), zap.Error(err))
		srv.MarkStale(op.String())
		return
	}
	info, err := dataset.Stat(cfg.Dataset.Path, cfg.Dataset.Format)
	if err != nil {
		srv.MarkStale(op.String())
		return
	}
	fp, err := fileid.Fingerprint(cfg.Dataset.Path)
	if err != nil {
		srv.MarkStale(op.String())
		return
	}
	srv.Reload(rows, info, fp)
}

func runRender() {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	common := addCommonFlags(fs)
	page := fs.Int("page", 1, "page to render (clamped to the available pages)")
	output := fs.String("output", "text", "output format: text or json")
	colorFlag := fs.Bool("color", false, "highlight with ANSI colors")
	width := fs.Int("width", 0, "clip value lines to this many columns (0 = no clipping)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(common)
	defer logger.Sync()

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(context.Background(), cfg, textSurface, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := renderPage(os.Stdout, components, cfg.Pager.PageSize, *page, format,
		cli.WithColor(*colorFlag), cli.WithMaxWidth(*width)); err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		os.Exit(1)
	}
}

// renderPage writes one page of components to w.
func renderPage(w io.Writer, c *Components, pageSize, page int, format cli.OutputFormat, opts ...cli.SurfaceOption) error {
	opts = append(opts, cli.WithRowCount(len(c.Rows)))
	surface := cli.NewSurface(w, c.Projector.Headers(), format, opts...)
	p := pager.New(c.Rows, pageSize, c.Projector, nil)
	p.SetPage(page)
	surface.SetPageIndicator(p.Page(), p.TotalPages())
	surface.RenderRows(c.Projector.ProjectAll(p.Window()))
	return surface.Err()
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	common := addCommonFlags(fs)
	page := fs.Int("page", 0, "export only this page (0 = every record)")
	out := fs.String("out", "", "output .xlsx path")
	sheet := fs.String("sheet", "", "worksheet name (default: records)")
	_ = fs.Parse(os.Args[2:])

	if *out == "" {
		fmt.Fprintln(os.Stderr, "Usage: traitview export --out <file.xlsx> [flags]")
		os.Exit(1)
	}
	cfg, _, logger := setup(common)
	defer logger.Sync()

	components, err := initializeComponents(context.Background(), cfg, textSurface, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	n, err := exportRows(*out, components, cfg.Pager.PageSize, *page, *sheet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d records to %s\n", n, *out)
}

// exportRows writes page (or every row when page is 0) to an xlsx file and
// returns the number of rows written.
func exportRows(path string, c *Components, pageSize, page int, sheet string) (int, error) {
	rows := c.Rows
	if page > 0 {
		p := pager.New(c.Rows, pageSize, c.Projector, nil)
		p.SetPage(page)
		rows = p.Window()
	}
	cells := c.Projector.ProjectAll(rows)
	if err := export.SaveXLSX(path, c.Projector.Headers(), cells, render.SentinelMarkers, export.Options{Sheet: sheet}); err != nil {
		return 0, err
	}
	return len(cells), nil
}

// statusResponse is the shape of /api/v1/status and of local status output.
type statusResponse struct {
	Records     int            `json:"records"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Stale       bool           `json:"stale"`
	Sessions    *int           `json:"sessions,omitempty"`
	Columns     []string       `json:"columns"`
	Dataset     *statusDataset `json:"dataset,omitempty"`
}

type statusDataset struct {
	Path     string `json:"path"`
	Format   string `json:"format"`
	Bytes    int64  `json:"bytes"`
	Modified string `json:"modified"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	common := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL (empty = read the dataset directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, logger := setup(common)
		defer logger.Sync()
		components, err := initializeComponents(context.Background(), cfg, textSurface, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		status = localStatus(components, cfg.Pager.PageSize)
	}
	if err := writeStatus(os.Stdout, &status, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func localStatus(c *Components, pageSize int) statusResponse {
	p := pager.New(c.Rows, pageSize, c.Projector, nil)
	return statusResponse{
		Records:     p.RowCount(),
		PageSize:    p.PageSize(),
		TotalPages:  p.TotalPages(),
		Fingerprint: c.Fingerprint,
		Columns:     c.Projector.Headers(),
		Dataset: &statusDataset{
			Path:     c.Info.Path,
			Format:   c.Info.Format,
			Bytes:    c.Info.Bytes,
			Modified: c.Info.ModTime.UTC().Format(time.RFC3339),
		},
	}
}

func writeStatus(w io.Writer, status *statusResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "text":
		fmt.Fprintf(w, "records:      %d\n", status.Records)
		fmt.Fprintf(w, "page_size:    %d\n", status.PageSize)
		fmt.Fprintf(w, "total_pages:  %d\n", status.TotalPages)
		if status.Fingerprint != "" {
			fmt.Fprintf(w, "fingerprint:  %s\n", status.Fingerprint)
		}
		if status.Stale {
			fmt.Fprintln(w, "stale:        true   # dataset changed on disk since load")
		}
		if status.Sessions != nil {
			fmt.Fprintf(w, "sessions:     %d\n", *status.Sessions)
		}
		fmt.Fprintf(w, "columns:      %s\n", strings.Join(status.Columns, ", "))
		if d := status.Dataset; d != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "# dataset")
			fmt.Fprintf(w, "path:         %s\n", d.Path)
			fmt.Fprintf(w, "format:       %s\n", d.Format)
			fmt.Fprintf(w, "bytes:        %d\n", d.Bytes)
			fmt.Fprintf(w, "modified:     %s\n", d.Modified)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q; use text or json", format)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	format := fs.String("format", "", "input format: json or jsonl (default: from extension)")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: traitview import [flags] <in.json|in.jsonl> <out.db>")
		os.Exit(1)
	}
	logger, err := utils.NewLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	n, err := importDataset(context.Background(), fs.Arg(0), *format, fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	logger.Info("dataset imported", zap.String("from", fs.Arg(0)), zap.String("to", fs.Arg(1)), zap.Int("records", n))
	fmt.Printf("Imported %d records into %s\n", n, fs.Arg(1))
}

// importDataset loads a JSON or JSONL dataset and writes it as a SQLite snapshot.
func importDataset(ctx context.Context, in, format, out string) (int, error) {
	rows, err := dataset.LoadAll(ctx, in, format)
	if err != nil {
		return 0, err
	}
	if err := dataset.ImportSQLite(ctx, out, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config")
	datasetPath := fs.String("dataset", "", "dataset path to record in the config")
	force := fs.Bool("force", false, "overwrite an existing config")
	_ = fs.Parse(os.Args[2:])

	if err := writeInitialConfig(*path, *datasetPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

func writeInitialConfig(path, datasetPath string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := defaultConfig()
	cfg.Dataset.Path = datasetPath
	return config.Save(path, cfg)
}

func printUsage() {
	fmt.Println(`traitview - Paged viewer for trait-annotated specimen records

Usage:
  traitview serve [flags]                  Start the HTTP viewer
  traitview render [flags]                 Print one page to the terminal
  traitview export --out <file> [flags]    Write records to an .xlsx workbook
  traitview status [flags]                 Show dataset and paging status
  traitview import <in.json> <out.db>      Convert a JSON dataset to a SQLite snapshot
  traitview init [flags]                   Write a default config.yaml
  traitview version                        Show version
  traitview help                           Show this help

Common Flags (serve, render, export, status):
  --config string    Config file path (default: /usr/local/etc/traitview/config.yaml,
                     or ./config.yaml when present)
  --dataset string   Dataset path (overrides config)
  --format string    Dataset format: json, jsonl or sqlite (default: from extension)
  --page-size int    Rows per page (default: 100)
  --extra, --trait, --search, --as-is string
                     Comma-separated field groups (override config)
  --debug            Enable debug logging

Serve Flags:
  --port int         Listen port (default: 8080)
  --watch            Reload when the dataset file changes

Render Flags:
  --page int         Page to print (default: 1)
  --output string    Output format: text or json (default: text)
  --color            Highlight with ANSI colors
  --width int        Clip value lines to this many columns

Export Flags:
  --out string       Output .xlsx path (required)
  --page int         Export only this page (default: every record)
  --sheet string     Worksheet name (default: records)

Status Flags:
  --server string    Ask a running server instead of reading the dataset
  --output string    Output format: text or json (default: text)

Examples:
  traitview init --dataset ./records.json
  traitview serve --watch
  traitview render --page 3 --color
  traitview render --page 3 --output json
  traitview export --out page3.xlsx --page 3
  traitview import records.json records.db
  traitview status --server http://localhost:8080`)
}
