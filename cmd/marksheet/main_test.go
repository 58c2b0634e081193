package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marksheet/internal/app"
	"marksheet/internal/config"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("MARKSHEET_OCR_ENGINE", "")
	t.Setenv("MARKSHEET_DATA_DIR", "")

	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[data]\ndata_dir = %q\n\n[ocr]\nengine = \"tesseract\"\n", dataDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, dataDir: dataDir, baseDir: base}
}

// seed 直接写入汇总数据
func (e *cliTestEnv) seed(t *testing.T, sheets map[string]map[string]string) {
	t.Helper()
	cfg, _, err := config.Load(e.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := config.EnsureDataDir(cfg); err != nil {
		t.Fatalf("ensure data dir: %v", err)
	}
	a, err := app.Open(cfg, e.dataDir, nil)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	defer a.Close()
	for regNo, marks := range sheets {
		total := marks["TotalMarks"]
		delete(marks, "TotalMarks")
		if _, err := a.Results.Upsert(regNo, marks, total); err != nil {
			t.Fatalf("upsert %s: %v", regNo, err)
		}
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestResultsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "results", "list")
	if err != nil {
		t.Fatalf("results list: %v", err)
	}
	if !strings.Contains(out, "No aggregated sheets") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestResultsListDeleteAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, map[string]map[string]string{
		"JEC23AD016": {"Q1a": "5", "Q1b": "3", "TotalMarks": "8"},
		"JEC23AD020": {"Q1a": "2", "TotalMarks": "2"},
	})

	out, err := env.run(t, "results", "list")
	if err != nil {
		t.Fatalf("results list: %v", err)
	}
	// go-pretty 默认表头大写
	for _, want := range []string{"REGISTER NO.", "TOTAL MARKS", "JEC23AD016", "JEC23AD020"} {
		if !strings.Contains(strings.ToUpper(out), want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}

	if _, err := env.run(t, "results", "delete", "JEC23AD020"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.run(t, "results", "delete", "JEC23AD020"); err == nil {
		t.Fatalf("expected error deleting a missing sheet")
	}

	if _, err := env.run(t, "results", "clear"); err == nil {
		t.Fatalf("clear without --yes should fail")
	}
	if _, err := env.run(t, "results", "clear", "--yes"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, _ = env.run(t, "results", "list")
	if !strings.Contains(out, "No aggregated sheets") {
		t.Fatalf("expected empty results after clear:\n%s", out)
	}
}

func TestExportCSV(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, map[string]map[string]string{
		"JEC23AD016": {"Q1a": "5", "TotalMarks": "5"},
	})
	target := filepath.Join(env.baseDir, "out.csv")
	if _, err := env.run(t, "export", "--format", "csv", "-o", target); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Register No.,Q1a,Total Marks") {
		t.Fatalf("unexpected csv:\n%s", data)
	}
	if _, err := env.run(t, "export", "--format", "pdf"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestMergeRoster(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, map[string]map[string]string{
		"JEC23AD016": {"Q1a": "5", "Q1b": "3", "TotalMarks": "8"},
	})
	rosterPath := filepath.Join(env.baseDir, "class.csv")
	roster := "Course: CS301\nAdmission No,Name,1a,1b,Total\nXYZ016,Jane,,,\nXYZ999,Nobody,,,\n"
	if err := os.WriteFile(rosterPath, []byte(roster), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	target := filepath.Join(env.baseDir, "merged.csv")
	out, err := env.run(t, "merge", rosterPath, "-o", target)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !strings.Contains(out, "Updated rows") || !strings.Contains(out, "XYZ999") {
		t.Fatalf("unexpected report:\n%s", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read merged: %v", err)
	}
	want := "Course: CS301\nAdmission No,Name,1a,1b,Total\n\"XYZ016\",\"Jane\",\"5\",\"3\",\"8\"\n"
	if !strings.HasPrefix(string(data), want) {
		t.Fatalf("merged csv:\n%s", data)
	}
}

func TestConfigInit(t *testing.T) {
	t.Setenv("MARKSHEET_OCR_ENGINE", "")
	t.Setenv("MARKSHEET_DATA_DIR", "")
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")

	run := func(args ...string) error {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", path, "--data-dir", filepath.Join(base, "data")}, args...))
		return cmd.Execute()
	}

	if err := run("config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, info, err := config.Load(path)
	if err != nil || !info.FileFound {
		t.Fatalf("load written config: %v found=%v", err, info.FileFound)
	}
	if cfg.Server.Port != config.DefaultConfig().Server.Port {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
	if err := run("config", "init"); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if err := run("config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}
