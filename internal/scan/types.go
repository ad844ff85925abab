package scan

// Finding records the first marker match in a file
type Finding struct {
	Path string // Slash-separated path relative to the scan root
	Line int    // 1-based line number of the first matching line
}

// ScanError represents a non-fatal error during scanning
type ScanError struct {
	Path string
	Err  error
}

// Result contains everything collected over a single scan run
type Result struct {
	Root         string
	FilesScanned int
	Findings     []Finding
	Errors       []ScanError
}

// Flagged reports whether any scanned file contained the marker
func (r *Result) Flagged() bool {
	return len(r.Findings) > 0
}
