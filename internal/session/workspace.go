package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/gabssanto/todoscan/internal/history"
)

// StartSession creates a temporary workspace with symlinks to the files
// flagged in the most recent recorded scan and spawns a shell there
func StartSession() error {
	run, err := history.LatestRun()
	if err != nil {
		return fmt.Errorf("failed to load latest run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("no recorded runs, scan something first")
	}

	findings, err := history.FindingsForRun(run.ID)
	if err != nil {
		return fmt.Errorf("failed to load findings: %w", err)
	}
	if len(findings) == 0 {
		return fmt.Errorf("latest run was clean, nothing to work through")
	}

	// Create temp directory
	tempDir, err := os.MkdirTemp("", fmt.Sprintf("todoscan-run%d-", run.ID))
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	// Cleanup temp directory on exit
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to cleanup temp directory %s: %v\n", tempDir, err)
		}
	}()

	if err := populateWorkspace(tempDir, run.Root, findings); err != nil {
		return err
	}

	fmt.Printf("Review session started for run %d (%s)\n", run.ID, run.Root)
	fmt.Printf("Workspace: %s\n", tempDir)
	fmt.Printf("Flagged files: %d\n\n", len(findings))
	fmt.Println("Type 'exit' to leave the review session")
	fmt.Println("---")

	// Get user's shell
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}

	// Spawn shell in the temp directory
	cmd := exec.Command(shell)
	cmd.Dir = tempDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Set environment variables
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("TODOSCAN_SESSION=%d", run.ID),
		fmt.Sprintf("TODOSCAN_WORKSPACE=%s", tempDir),
	)

	// Run the shell
	shellErr := cmd.Run()

	if shellErr != nil {
		// A non-zero shell exit is not an error for the session itself
		if exitErr, ok := shellErr.(*exec.ExitError); ok {
			if _, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				fmt.Println("\nReview session ended. Workspace cleaned up.")
				return nil
			}
		}
		return fmt.Errorf("failed to run shell: %w", shellErr)
	}

	fmt.Println("\nReview session ended. Workspace cleaned up.")
	return nil
}

// populateWorkspace symlinks each flagged file into dir. Finding paths are
// relative to the run root. Name conflicts get a numeric suffix.
func populateWorkspace(dir, root string, findings []history.Finding) error {
	for _, f := range findings {
		target := filepath.Join(root, filepath.FromSlash(f.Path))

		linkName := filepath.Base(f.Path)
		linkPath := filepath.Join(dir, linkName)

		// Handle name conflicts by appending a number
		counter := 1
		originalLinkPath := linkPath
		for {
			_, err := os.Lstat(linkPath)
			if os.IsNotExist(err) {
				break
			}
			linkPath = fmt.Sprintf("%s-%d", originalLinkPath, counter)
			counter++
		}

		if err := os.Symlink(target, linkPath); err != nil {
			return fmt.Errorf("failed to create symlink for %s: %w", target, err)
		}
	}
	return nil
}
