package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gabssanto/todoscan/internal/db"
	"github.com/gabssanto/todoscan/internal/history"
)

// setupScanRoot creates a directory tree to scan
func setupScanRoot(t *testing.T, files map[string]string) (string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "todoscan-main-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	for rel, content := range files {
		full := filepath.Join(tmpDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	return tmpDir, func() { os.RemoveAll(tmpDir) }
}

func TestRunScanWithoutDatabaseFlagged(t *testing.T) {
	root, cleanup := setupScanRoot(t, map[string]string{
		"a.py": "x = 1\ny = 2\n# TODO handle errors\n",
	})
	defer cleanup()

	var out, errOut strings.Builder
	code := runScan(root, errors.New("database unavailable"), &out, &errOut)

	// An unavailable database must not change the report or the exit code
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "a.py:3: TODO found\n") {
		t.Errorf("Report line missing from stdout:\n%s", out.String())
	}
	if !strings.HasSuffix(out.String(), "TODOs found\n") {
		t.Errorf("Summary line missing from stdout:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "history unavailable") {
		t.Errorf("Expected recording warning on stderr, got:\n%s", errOut.String())
	}
}

func TestRunScanWithoutDatabaseClean(t *testing.T) {
	root, cleanup := setupScanRoot(t, map[string]string{
		"c.md": "# notes\nnothing pending\n",
	})
	defer cleanup()

	var out, errOut strings.Builder
	code := runScan(root, errors.New("database unavailable"), &out, &errOut)

	if code != 0 {
		t.Errorf("Clean tree must exit 0 even without a database, got %d", code)
	}
	if out.String() != "No TODOs found\n" {
		t.Errorf("Expected exactly the clean summary on stdout, got:\n%s", out.String())
	}
}

func TestRunScanRecordsHistory(t *testing.T) {
	root, cleanup := setupScanRoot(t, map[string]string{
		"a.py": "TODO first thing\n",
	})
	defer cleanup()

	homeDir, err := os.MkdirTemp("", "todoscan-main-home-*")
	if err != nil {
		t.Fatalf("Failed to create home dir: %v", err)
	}
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", homeDir)
	defer func() {
		db.Close()
		db.ResetForTesting()
		os.Setenv("HOME", originalHome)
		os.RemoveAll(homeDir)
	}()

	if err := db.InitDB(); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}

	var out, errOut strings.Builder
	code := runScan(root, nil, &out, &errOut)

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if errOut.Len() != 0 {
		t.Errorf("Expected no warnings, got:\n%s", errOut.String())
	}

	run, err := history.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("Scan was not recorded")
	}
	if run.Root != root || run.FindingsCount != 1 {
		t.Errorf("Recorded run mismatch: root %s, %d findings", run.Root, run.FindingsCount)
	}
}

func TestRunScanRecordingFailureOnlyWarns(t *testing.T) {
	root, cleanup := setupScanRoot(t, map[string]string{
		"c.md": "clean\n",
	})
	defer cleanup()

	// No InitDB: RecordRun fails with "database not initialized"
	db.ResetForTesting()

	var out, errOut strings.Builder
	code := runScan(root, nil, &out, &errOut)

	if code != 0 {
		t.Errorf("Recording failure must not change the exit code, got %d", code)
	}
	if out.String() != "No TODOs found\n" {
		t.Errorf("Recording failure must not change stdout, got:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), "failed to record run") {
		t.Errorf("Expected recording warning on stderr, got:\n%s", errOut.String())
	}
}
