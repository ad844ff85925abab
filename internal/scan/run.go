package scan

import (
	"fmt"
	"io"
	"io/fs"
)

// Summary lines printed after the walk completes
const (
	summaryFlagged = "TODOs found"
	summaryClean   = "No TODOs found"
)

// Run walks the tree, scans every candidate file, and folds the per-file
// results into a single Result. A finding is reported on w the moment it
// is found; exactly one summary line follows after all files are
// processed. A flagged file never stops the run.
func Run(fsys fs.FS, root string, exclude map[string]bool, w io.Writer) *Result {
	walker := &Walker{FS: fsys, Exclude: exclude}
	scanner := &Scanner{FS: fsys, Invalid: DropInvalid}

	result := &Result{Root: root}
	for path, err := range walker.Files() {
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Err: err})
			continue
		}

		result.FilesScanned++
		finding, err := scanner.ScanFile(path)
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Path: path, Err: err})
			continue
		}

		if finding != nil {
			result.Findings = append(result.Findings, *finding)
			fmt.Fprintf(w, "%s:%d: %s found\n", finding.Path, finding.Line, Marker)
		}
	}

	if result.Flagged() {
		fmt.Fprintln(w, summaryFlagged)
	} else {
		fmt.Fprintln(w, summaryClean)
	}

	return result
}
