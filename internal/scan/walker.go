package scan

import (
	"io/fs"
	"iter"
	"strings"
)

// Extensions is the fixed set of filename suffixes recognized as text-like.
// Only files ending with one of these are scanned.
var Extensions = []string{
	".js", ".html", ".css", ".json", ".py", ".md", ".txt",
}

// Directory name excluded from descent at every level
const skipDirName = ".git"

// Walker enumerates candidate files under a filesystem tree
type Walker struct {
	FS fs.FS
	// Exclude holds slash-separated paths that are never candidates,
	// such as the running executable
	Exclude map[string]bool
}

// ShouldScan reports whether a filename has a recognized extension
func ShouldScan(name string) bool {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Files returns a lazy sequence of candidate file paths. Iterating the
// sequence again restarts the walk from the root. Traversal errors are
// yielded alongside the path they occurred at and do not stop the walk.
func (w *Walker) Files() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = fs.WalkDir(w.FS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(path, err) {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != "." && d.Name() == skipDirName {
					return fs.SkipDir
				}
				return nil
			}

			if !ShouldScan(d.Name()) || w.Exclude[path] {
				return nil
			}

			if !yield(path, nil) {
				return fs.SkipAll
			}
			return nil
		})
	}
}
