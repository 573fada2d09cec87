package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/traitview/internal/cli"
	"github.com/hyperjump/traitview/internal/config"
)

const sampleDataset = `[
  {"index": 1, "raw": {"remarks": "adult female", "catalog": "MVZ 1"},
   "parsed": {"sex": [{"value": "female", "field": "remarks", "start": 6, "end": 12, "flags": {}}]}},
  {"index": 2, "raw": {"remarks": "juvenile", "catalog": "MVZ 2"}, "parsed": {}},
  {"index": 3, "raw": {"remarks": "male", "catalog": "MVZ 3"},
   "parsed": {"sex": [{"value": "male", "field": "remarks", "start": 0, "end": 4, "flags": {"as_is": true}}]}}
]`

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, []byte(sampleDataset), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) *config.Config {
	cfg := defaultConfig()
	cfg.Dataset.Path = path
	cfg.Fields.Extra = []string{"catalog"}
	cfg.Fields.Trait = []string{"sex"}
	cfg.Fields.Search = []string{"remarks"}
	cfg.Pager.PageSize = 2
	return cfg
}

func TestFlagsFirst(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positionals are moved first",
			args:     []string{"in.json", "out.db", "-debug"},
			expected: []string{"-debug", "in.json", "out.db"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-format", "jsonl", "in.jsonl", "out.db"},
			expected: []string{"-format", "jsonl", "in.jsonl", "out.db"},
		},
		{
			name:     "positionals only returns unchanged",
			args:     []string{"in.json", "out.db"},
			expected: []string{"in.json", "out.db"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flagsFirst(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("flagsFirst() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
dataset:
  path: "./records.json"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if filepath.Base(cfg.Dataset.Path) != "records.json" || !filepath.IsAbs(cfg.Dataset.Path) {
		t.Errorf("dataset path not expanded: %q", cfg.Dataset.Path)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
pager:
  page_size: 25
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Pager.PageSize != 25 {
		t.Errorf("page size = %d, want 25", cfg.Pager.PageSize)
	}
}

func TestLoadConfig_missingExplicitPathFails(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestCommonFlags_apply(t *testing.T) {
	dataset, format, pageSize, debug := "/tmp/x.db", "sqlite", 7, true
	empty, search := "", " fieldnotes, ,remarks "
	f := &commonFlags{
		configPath: &empty, debug: &debug, dataset: &dataset, format: &format, pageSize: &pageSize,
		extra: &empty, trait: &empty, search: &search, asIs: &empty,
	}
	cfg := defaultConfig()
	cfg.Fields.Trait = []string{"sex"}
	f.apply(cfg)
	if cfg.Dataset.Path != dataset || cfg.Dataset.Format != format || cfg.Pager.PageSize != 7 || !cfg.Debug {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Fields.Search, []string{"fieldnotes", "remarks"}) {
		t.Errorf("search fields = %v", cfg.Fields.Search)
	}
	if !reflect.DeepEqual(cfg.Fields.Trait, []string{"sex"}) {
		t.Errorf("unset flag changed trait fields: %v", cfg.Fields.Trait)
	}
}

func TestInitializeComponents_emptyDataset(t *testing.T) {
	cfg := defaultConfig()
	if _, err := initializeComponents(context.Background(), cfg, textSurface, zap.NewNop()); err == nil {
		t.Error("expected error without a dataset path")
	}
}

func TestRenderPage_text(t *testing.T) {
	cfg := testConfig(writeDataset(t))
	c, err := initializeComponents(context.Background(), cfg, textSurface, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := renderPage(&buf, c, cfg.Pager.PageSize, 1, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Page 1 of 2",
		"catalog  MVZ 1",
		"remarks  adult [female]",
		"sex      value: female",
		"         field: remarks",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "MVZ 3") {
		t.Error("page 1 should not include the third record")
	}
}

func TestRenderPage_jsonClampsPage(t *testing.T) {
	cfg := testConfig(writeDataset(t))
	c, err := initializeComponents(context.Background(), cfg, textSurface, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := renderPage(&buf, c, cfg.Pager.PageSize, 9, cli.OutputJSON); err != nil {
		t.Fatal(err)
	}
	var out cli.PageOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Page != 2 || out.TotalPages != 2 || out.RowCount != 3 || len(out.Rows) != 1 {
		t.Fatalf("unexpected page: %+v", out)
	}
	// Verbatim traits hide their provenance.
	if got := out.Rows[0][2].Text; got != "value: male" {
		t.Errorf("trait summary = %q, want %q", got, "value: male")
	}
}

func TestExportRows(t *testing.T) {
	cfg := testConfig(writeDataset(t))
	c, err := initializeComponents(context.Background(), cfg, textSurface, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "all.xlsx")
	n, err := exportRows(out, c, cfg.Pager.PageSize, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("exported %d rows, want 3", n)
	}
	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("records")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[0][0] != "#" || rows[3][1] != "MVZ 3" {
		t.Errorf("unexpected sheet rows: %v", rows)
	}

	n, err = exportRows(filepath.Join(t.TempDir(), "p2.xlsx"), c, cfg.Pager.PageSize, 2, "page 2")
	if err != nil || n != 1 {
		t.Errorf("page export = %d, %v; want 1, nil", n, err)
	}
}

func TestImportDataset_thenStatus(t *testing.T) {
	in := writeDataset(t)
	out := filepath.Join(t.TempDir(), "snap", "records.db")
	n, err := importDataset(context.Background(), in, "", out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("imported %d, want 3", n)
	}

	cfg := testConfig(out)
	c, err := initializeComponents(context.Background(), cfg, textSurface, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	status := localStatus(c, cfg.Pager.PageSize)
	if status.Records != 3 || status.TotalPages != 2 || status.Dataset.Format != "sqlite" {
		t.Errorf("unexpected status: %+v", status)
	}
	if !strings.HasPrefix(status.Fingerprint, "ds:") {
		t.Errorf("fingerprint = %q", status.Fingerprint)
	}

	var buf bytes.Buffer
	if err := writeStatus(&buf, &status, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "records:      3") || !strings.Contains(buf.String(), "format:       sqlite") {
		t.Errorf("text status:\n%s", buf.String())
	}
	if err := writeStatus(&buf, &status, "yaml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestWriteInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeInitialConfig(path, "./records.json", false); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pager.PageSize != 100 || cfg.Traits.VerbatimFlag != "as_is" {
		t.Errorf("defaults not written: %+v", cfg)
	}
	if filepath.Base(cfg.Dataset.Path) != "records.json" {
		t.Errorf("dataset path = %q", cfg.Dataset.Path)
	}
	if err := writeInitialConfig(path, "", false); err == nil {
		t.Error("expected refusal to overwrite without force")
	}
	if err := writeInitialConfig(path, "", true); err != nil {
		t.Errorf("force overwrite failed: %v", err)
	}
}
