package history

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/gabssanto/todoscan/internal/db"
)

// Run is a recorded scan run
type Run struct {
	ID            int64
	Root          string
	FilesScanned  int
	FindingsCount int
	CreatedAt     time.Time
}

// Finding is a recorded marker match
type Finding struct {
	Path string
	Line int
}

// RecordRun stores a completed scan run and its findings, returning the
// new run's id
func RecordRun(root string, filesScanned int, findings []Finding) (int64, error) {
	database := db.GetDB()
	if database == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := database.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()

	result, err := tx.Exec(
		"INSERT INTO runs (root, files_scanned, findings_count, created_at) VALUES (?, ?, ?, ?)",
		root, filesScanned, len(findings), now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, f := range findings {
		_, err := tx.Exec("INSERT INTO findings (run_id, path, line) VALUES (?, ?, ?)",
			runID, f.Path, f.Line)
		if err != nil {
			return 0, fmt.Errorf("failed to insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// ListRuns returns the most recent runs, newest first
func ListRuns(limit int) ([]Run, error) {
	database := db.GetDB()
	if database == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := database.Query(`
		SELECT id, root, files_scanned, findings_count, created_at
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Root, &r.FilesScanned, &r.FindingsCount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0)
		runs = append(runs, r)
	}

	return runs, nil
}

// GetRun returns a single run by id
func GetRun(id int64) (*Run, error) {
	database := db.GetDB()
	if database == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var r Run
	var created int64
	err := database.QueryRow(`
		SELECT id, root, files_scanned, findings_count, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Root, &r.FilesScanned, &r.FindingsCount, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	r.CreatedAt = time.Unix(created, 0)
	return &r, nil
}

// LatestRun returns the most recently recorded run, or nil when the
// history is empty
func LatestRun() (*Run, error) {
	runs, err := ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// FindingsForRun returns all findings recorded for a run, in path order
func FindingsForRun(runID int64) ([]Finding, error) {
	database := db.GetDB()
	if database == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := database.Query(`
		SELECT path, line
		FROM findings
		WHERE run_id = ?
		ORDER BY path, line
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.Path, &f.Line); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}

	return findings, nil
}

// PruneResult holds the result of a prune operation
type PruneResult struct {
	RemovedRuns  []Run
	RemovedCount int
}

// Prune removes recorded runs whose root directory no longer exists
func Prune(dryRun bool) (*PruneResult, error) {
	database := db.GetDB()
	if database == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := database.Query("SELECT id, root, files_scanned, findings_count, created_at FROM runs")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var toRemove []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Root, &r.FilesScanned, &r.FindingsCount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0)

		// Check if the scanned root still exists
		if _, err := os.Stat(r.Root); os.IsNotExist(err) {
			toRemove = append(toRemove, r)
		}
	}

	result := &PruneResult{
		RemovedRuns: make([]Run, 0, len(toRemove)),
	}

	if dryRun {
		result.RemovedRuns = append(result.RemovedRuns, toRemove...)
		result.RemovedCount = len(toRemove)
		return result, nil
	}

	for _, r := range toRemove {
		if _, err := database.Exec("DELETE FROM findings WHERE run_id = ?", r.ID); err != nil {
			return nil, fmt.Errorf("failed to delete findings for run %d: %w", r.ID, err)
		}
		if _, err := database.Exec("DELETE FROM runs WHERE id = ?", r.ID); err != nil {
			return nil, fmt.Errorf("failed to delete run %d: %w", r.ID, err)
		}
		result.RemovedRuns = append(result.RemovedRuns, r)
	}
	result.RemovedCount = len(toRemove)

	return result, nil
}
