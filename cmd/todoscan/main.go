package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/gabssanto/todoscan/internal/completions"
	"github.com/gabssanto/todoscan/internal/db"
	"github.com/gabssanto/todoscan/internal/history"
	"github.com/gabssanto/todoscan/internal/scan"
	"github.com/gabssanto/todoscan/internal/session"
	"github.com/gabssanto/todoscan/internal/update"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `todoscan - TODO marker scanner

Usage:
  todoscan                      Scan the current directory
  todoscan scan [path]          Scan a directory tree for TODO markers
  todoscan history [n]          List the n most recent runs (default 10)
  todoscan show [run-id]        Show findings of a run (default: latest)
  todoscan pick                 Interactive picker over the latest findings
  todoscan start                Open a review session for the latest run
  todoscan export               Export run history to YAML
  todoscan prune [--dry-run]    Remove runs whose root no longer exists
  todoscan update [--check]     Update to latest version
  todoscan completions <shell>  Generate shell completions (bash/zsh/fish)
  todoscan debug                Show debug information
  todoscan help                 Show this help message
  todoscan version              Show version information

Scanning:
  Files ending in .js .html .css .json .py .md .txt are read line by
  line. The first line containing TODO is reported per file:

    path:line: TODO found

  followed by one summary line, 'TODOs found' or 'No TODOs found'.
  Directories named .git are never descended into.

Exit codes:
  0  no TODO markers found in any scanned file
  1  at least one marker found, or an error occurred

Sessions:
  'todoscan start' opens a shell in a temporary workspace containing
  symlinks to every file flagged in the latest run. Type 'exit' or
  press Ctrl+D to leave; the workspace is cleaned up automatically.
`

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// showUpdateNotice displays update notification if available
func showUpdateNotice() {
	// Skip for commands where stdout is used for data
	if len(os.Args) >= 2 {
		cmd := os.Args[1]
		if cmd == "pick" || cmd == "export" || cmd == "completions" ||
			cmd == "version" || cmd == "--version" || cmd == "-v" {
			return
		}
	}

	// Check if running in a non-interactive context
	if os.Getenv("TODOSCAN_NO_UPDATE_CHECK") != "" {
		return
	}

	notice := update.GetUpdateNotice(Version)
	if notice != "" {
		fmt.Fprint(os.Stderr, notice)
	}
}

func run() (int, error) {
	// The history database is optional for scanning: a scan must still
	// report and exit correctly when it cannot be opened. Commands that
	// read history require it.
	dbErr := db.InitDB()
	if dbErr == nil {
		defer func() { _ = db.Close() }()
	}

	requireDB := func() error {
		if dbErr != nil {
			return fmt.Errorf("failed to initialize database: %w", dbErr)
		}
		return nil
	}

	// Refresh the update cache in the background; the notice is printed
	// from the cache at the end (only for interactive commands)
	if os.Getenv("TODOSCAN_NO_UPDATE_CHECK") == "" {
		go update.RefreshCacheIfStale(Version)
	}
	defer showUpdateNotice()

	// No arguments means scan the current directory
	if len(os.Args) < 2 {
		return handleScan(dbErr)
	}

	command := os.Args[1]

	switch command {
	case "scan":
		return handleScan(dbErr)
	case "history":
		if err := requireDB(); err != nil {
			return 0, err
		}
		return 0, handleHistory()
	case "show":
		if err := requireDB(); err != nil {
			return 0, err
		}
		return 0, handleShow()
	case "pick":
		if err := requireDB(); err != nil {
			return 0, err
		}
		return 0, handlePick()
	case "start":
		if err := requireDB(); err != nil {
			return 0, err
		}
		return 0, handleStart()
	case "export":
		if err := requireDB(); err != nil {
			return 0, err
		}
		return 0, handleExport()
	case "prune":
		if err := requireDB(); err != nil {
			return 0, err
		}
		return 0, handlePrune()
	case "completions":
		return 0, handleCompletions()
	case "update":
		return 0, handleUpdate()
	case "debug":
		return 0, handleDebug()
	case "help", "--help", "-h":
		fmt.Print(usage)
		return 0, nil
	case "version", "--version", "-v":
		fmt.Printf("todoscan version %s\n", Version)
		return 0, nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Print(usage)
		return 0, nil
	}
}

func handleScan(dbErr error) (int, error) {
	// Default to current directory
	path := "."
	if len(os.Args) >= 3 {
		path = os.Args[2]
	}

	// Resolve to absolute path
	absPath, err := resolvePath(path)
	if err != nil {
		return 0, err
	}

	// Verify it's a directory
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return runScan(absPath, dbErr, os.Stdout, os.Stderr), nil
}

// runScan performs the scan and best-effort history recording. The report
// and summary go to stdout and decide the return code alone; an
// unavailable database (dbErr) or a recording failure is only a stderr
// warning.
func runScan(absPath string, dbErr error, stdout, stderr io.Writer) int {
	result := scan.Run(os.DirFS(absPath), absPath, selfExclusion(absPath), stdout)

	// Non-fatal scan errors never affect stdout or the exit code
	for _, e := range result.Errors {
		fmt.Fprintf(stderr, "Warning: %s: %v\n", e.Path, e.Err)
	}

	if dbErr != nil {
		fmt.Fprintf(stderr, "Warning: history unavailable, run not recorded: %v\n", dbErr)
	} else {
		findings := make([]history.Finding, 0, len(result.Findings))
		for _, f := range result.Findings {
			findings = append(findings, history.Finding{Path: f.Path, Line: f.Line})
		}
		if _, err := history.RecordRun(absPath, result.FilesScanned, findings); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to record run: %v\n", err)
		}
	}

	if result.Flagged() {
		return 1
	}
	return 0
}

// selfExclusion returns the candidate paths that map to the running
// executable, so the tool never scans itself
func selfExclusion(root string) map[string]bool {
	exclude := make(map[string]bool)

	exe, err := os.Executable()
	if err != nil {
		return exclude
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return exclude
	}

	rel, err := filepath.Rel(root, exe)
	if err != nil || strings.HasPrefix(rel, "..") {
		return exclude
	}

	exclude[filepath.ToSlash(rel)] = true
	return exclude
}

// resolvePath converts a path (including .) to an absolute path
func resolvePath(path string) (string, error) {
	// Handle current directory
	if path == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		return cwd, nil
	}

	// Expand home directory
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}

	// Get absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	return absPath, nil
}

func handleHistory() error {
	limit := 10
	if len(os.Args) >= 3 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count: %s", os.Args[2])
		}
		limit = n
	}

	runs, err := history.ListRuns(limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs. Use 'todoscan scan' first.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("#%-4d %s  %-40s %d findings / %d files\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Root, r.FindingsCount, r.FilesScanned)
	}
	fmt.Printf("\nTotal: %d runs shown\n", len(runs))
	return nil
}

func handleShow() error {
	var run *history.Run
	var err error

	if len(os.Args) >= 3 {
		id, convErr := strconv.ParseInt(os.Args[2], 10, 64)
		if convErr != nil {
			return fmt.Errorf("invalid run id: %s", os.Args[2])
		}
		run, err = history.GetRun(id)
	} else {
		run, err = history.LatestRun()
	}
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("No recorded runs. Use 'todoscan scan' first.")
		return nil
	}

	fmt.Printf("Run #%d  %s  %s\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Root)
	fmt.Printf("Scanned %d files, %d flagged\n\n", run.FilesScanned, run.FindingsCount)

	findings, err := history.FindingsForRun(run.ID)
	if err != nil {
		return err
	}

	if len(findings) == 0 {
		fmt.Println("No TODOs found")
		return nil
	}

	for _, f := range findings {
		fmt.Printf("  %s:%d\n", f.Path, f.Line)
	}
	return nil
}

func handlePick() error {
	run, err := history.LatestRun()
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no recorded runs, scan something first")
	}

	findings, err := history.FindingsForRun(run.ID)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		return fmt.Errorf("latest run was clean, nothing to pick")
	}

	// Build options for select
	options := make([]huh.Option[string], len(findings))
	for i, f := range findings {
		fullPath := filepath.Join(run.Root, filepath.FromSlash(f.Path))
		label := fmt.Sprintf("%s:%d", f.Path, f.Line)
		options[i] = huh.NewOption(label, fullPath)
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a flagged file").
				Description("Use / to filter, enter to select").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("selection canceled: %w", err)
	}

	// Output the selected path
	fmt.Println(selected)
	return nil
}

func handleStart() error {
	return session.StartSession()
}

// ExportData represents the structure of exported history
type ExportData struct {
	Version int         `yaml:"version"`
	Runs    []ExportRun `yaml:"runs"`
}

// ExportRun is one recorded run in the export
type ExportRun struct {
	ID           int64    `yaml:"id"`
	Root         string   `yaml:"root"`
	ScannedAt    string   `yaml:"scanned_at"`
	FilesScanned int      `yaml:"files_scanned"`
	Findings     []string `yaml:"findings"`
}

func handleExport() error {
	runs, err := history.ListRuns(1000)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "No runs to export")
		return nil
	}

	data := ExportData{
		Version: 1,
		Runs:    make([]ExportRun, 0, len(runs)),
	}

	for _, r := range runs {
		findings, err := history.FindingsForRun(r.ID)
		if err != nil {
			return fmt.Errorf("failed to get findings for run %d: %w", r.ID, err)
		}

		er := ExportRun{
			ID:           r.ID,
			Root:         r.Root,
			ScannedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			FilesScanned: r.FilesScanned,
			Findings:     make([]string, 0, len(findings)),
		}
		for _, f := range findings {
			er.Findings = append(er.Findings, fmt.Sprintf("%s:%d", f.Path, f.Line))
		}
		data.Runs = append(data.Runs, er)
	}

	// Marshal to YAML
	output, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	fmt.Print(string(output))
	return nil
}

func handlePrune() error {
	dryRun := false
	if len(os.Args) >= 3 && (os.Args[2] == "--dry-run" || os.Args[2] == "-n") {
		dryRun = true
	}

	result, err := history.Prune(dryRun)
	if err != nil {
		return err
	}

	if result.RemovedCount == 0 {
		fmt.Println("No stale runs found. Everything is clean!")
		return nil
	}

	if dryRun {
		fmt.Printf("Would remove %d stale run(s):\n", result.RemovedCount)
	} else {
		fmt.Printf("Removed %d stale run(s):\n", result.RemovedCount)
	}

	for _, r := range result.RemovedRuns {
		fmt.Printf("  #%d %s\n", r.ID, r.Root)
	}

	return nil
}

func handleCompletions() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: todoscan completions <shell>\nSupported shells: bash, zsh, fish")
	}

	shell := os.Args[2]
	script, err := completions.Generate(shell)
	if err != nil {
		return err
	}

	fmt.Print(script)
	return nil
}

func handleUpdate() error {
	// Check for --check flag
	checkOnly := false
	if len(os.Args) >= 3 && (os.Args[2] == "--check" || os.Args[2] == "-c") {
		checkOnly = true
	}

	if checkOnly {
		info, err := update.CheckForUpdate(Version)
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}

		if info.UpdateAvailable {
			fmt.Printf("Update available: %s (current: %s)\n", info.LatestVersion, info.CurrentVersion)
			fmt.Printf("Run 'todoscan update' to install\n")
			fmt.Printf("Release: %s\n", info.ReleaseURL)
		} else {
			fmt.Printf("Already up to date (version %s)\n", Version)
		}
		return nil
	}

	return update.PerformUpdate(Version)
}

func handleDebug() error {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".config", "todoscan", "todoscan.db")

	fmt.Println("todoscan Debug Information")
	fmt.Println("==========================")
	fmt.Printf("Version:     %s\n", Version)
	fmt.Printf("OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("Go version:  %s\n", runtime.Version())
	fmt.Printf("Database:    %s\n", dbPath)

	// Check if db exists
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("DB size:     %d bytes\n", info.Size())
	} else {
		fmt.Printf("DB size:     (not found)\n")
	}

	// Shell info
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "(unknown)"
	}
	fmt.Printf("Shell:       %s\n", shell)

	// Review session info
	if s := os.Getenv("TODOSCAN_SESSION"); s != "" {
		fmt.Printf("In session:  run %s\n", s)
		fmt.Printf("Workspace:   %s\n", os.Getenv("TODOSCAN_WORKSPACE"))
	}

	// Stats
	runs, _ := history.ListRuns(1000)
	totalFindings := 0
	for _, r := range runs {
		totalFindings += r.FindingsCount
	}
	fmt.Printf("\nStats:\n")
	fmt.Printf("  Runs:      %d\n", len(runs))
	fmt.Printf("  Findings:  %d recorded\n", totalFindings)

	return nil
}
