package scan

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

// failOpenFS fails opening one path while the rest of the tree stays
// readable
type failOpenFS struct {
	fstest.MapFS
	failPath string
}

func (f failOpenFS) Open(name string) (fs.File, error) {
	if name == f.failPath {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.Open(name)
}

// failReadDirFS fails listing one directory during the walk
type failReadDirFS struct {
	fstest.MapFS
	failDir string
}

func (f failReadDirFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.failDir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadDir(name)
}

func TestRunFlagged(t *testing.T) {
	fsys := fstest.MapFS{
		"a.py":  {Data: []byte("x = 1\ny = 2\n# TODO handle errors\n")},
		"b.txt": {Data: []byte("all clean here\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if !result.Flagged() {
		t.Error("expected run to be flagged")
	}
	if result.FilesScanned != 2 {
		t.Errorf("expected 2 files scanned, got %d", result.FilesScanned)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(result.Findings))
	}
	if f := result.Findings[0]; f.Path != "a.py" || f.Line != 3 {
		t.Errorf("expected a.py:3, got %s:%d", f.Path, f.Line)
	}

	got := out.String()
	if !strings.Contains(got, "a.py:3: TODO found\n") {
		t.Errorf("output missing report line, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "TODOs found\n") {
		t.Errorf("output missing summary line, got:\n%s", got)
	}
}

func TestRunClean(t *testing.T) {
	fsys := fstest.MapFS{
		"c.md": {Data: []byte("# notes\nnothing pending\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if result.Flagged() {
		t.Error("expected clean run")
	}
	if out.String() != "No TODOs found\n" {
		t.Errorf("expected exactly the clean summary, got:\n%s", out.String())
	}
}

func TestRunFirstMatchOnlyPerFile(t *testing.T) {
	fsys := fstest.MapFS{
		"a.py": {Data: []byte("TODO one\nTODO two\nTODO three\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if len(result.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(result.Findings))
	}
	if n := strings.Count(out.String(), "TODO found"); n != 1 {
		t.Errorf("expected exactly one report line, got %d", n)
	}
}

func TestRunContinuesAfterFlaggedFile(t *testing.T) {
	fsys := fstest.MapFS{
		"a.py": {Data: []byte("TODO first\n")},
		"z.py": {Data: []byte("TODO second\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if len(result.Findings) != 2 {
		t.Errorf("a flagged file must not stop the run, got %d findings", len(result.Findings))
	}
	if result.FilesScanned != 2 {
		t.Errorf("expected 2 files scanned, got %d", result.FilesScanned)
	}
}

func TestRunIgnoresGitDirectory(t *testing.T) {
	fsys := fstest.MapFS{
		".git/hooks/note.txt": {Data: []byte("TODO in metadata\n")},
		"real.txt":            {Data: []byte("fine\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if result.Flagged() {
		t.Error("content under .git must never flag the run")
	}
	if out.String() != "No TODOs found\n" {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunIgnoresUnrecognizedExtensions(t *testing.T) {
	fsys := fstest.MapFS{
		"binary.dat": {Data: []byte("TODO hidden in data\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if result.Flagged() {
		t.Error("files outside the extension set must never be scanned")
	}
	if result.FilesScanned != 0 {
		t.Errorf("expected 0 files scanned, got %d", result.FilesScanned)
	}
}

func TestRunExcludesSelf(t *testing.T) {
	fsys := fstest.MapFS{
		"tool.py": {Data: []byte("TODO inside the tool itself\n")},
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", map[string]bool{"tool.py": true}, &out)

	if result.Flagged() {
		t.Error("the tool's own file must never flag the run")
	}
}

func TestRunCollectsReadErrors(t *testing.T) {
	fsys := failOpenFS{
		MapFS: fstest.MapFS{
			"bad.py":  {Data: []byte("TODO unreachable\n")},
			"good.py": {Data: []byte("ok\nTODO reachable\n")},
		},
		failPath: "bad.py",
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	// The unreadable file lands in Errors and the rest of the run is
	// unaffected
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 scan error, got %d", len(result.Errors))
	}
	if result.Errors[0].Path != "bad.py" {
		t.Errorf("expected error for bad.py, got %s", result.Errors[0].Path)
	}
	if len(result.Findings) != 1 || result.Findings[0].Path != "good.py" {
		t.Fatalf("expected good.py finding, got %v", result.Findings)
	}

	got := out.String()
	if strings.Contains(got, "bad.py") {
		t.Errorf("read errors must never reach stdout:\n%s", got)
	}
	if !strings.Contains(got, "good.py:2: TODO found\n") {
		t.Errorf("readable file missing from report:\n%s", got)
	}
	if !strings.HasSuffix(got, "TODOs found\n") {
		t.Errorf("summary must reflect the readable files:\n%s", got)
	}
}

func TestRunReadErrorsDoNotFlagCleanRun(t *testing.T) {
	fsys := failOpenFS{
		MapFS: fstest.MapFS{
			"bad.py":   {Data: []byte("TODO unreachable\n")},
			"clean.md": {Data: []byte("nothing here\n")},
		},
		failPath: "bad.py",
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if result.Flagged() {
		t.Error("an unreadable file must not flag the run")
	}
	if out.String() != "No TODOs found\n" {
		t.Errorf("expected exactly the clean summary, got:\n%s", out.String())
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected the read error collected, got %d", len(result.Errors))
	}
}

func TestRunCollectsWalkErrors(t *testing.T) {
	fsys := failReadDirFS{
		MapFS: fstest.MapFS{
			"locked/secret.txt": {Data: []byte("TODO hidden\n")},
			"open.txt":          {Data: []byte("TODO visible\n")},
		},
		failDir: "locked",
	}

	var out strings.Builder
	result := Run(fsys, "/tmp/project", nil, &out)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 walk error, got %d", len(result.Errors))
	}
	if result.Errors[0].Path != "locked" {
		t.Errorf("expected error for locked, got %s", result.Errors[0].Path)
	}
	if len(result.Findings) != 1 || result.Findings[0].Path != "open.txt" {
		t.Fatalf("expected open.txt finding, got %v", result.Findings)
	}
	if !strings.HasSuffix(out.String(), "TODOs found\n") {
		t.Errorf("summary must reflect the reachable files:\n%s", out.String())
	}
}

func TestRunReportOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"a.py":  {Data: []byte("x\ny\nTODO here\n")},
		"b.txt": {Data: []byte("clean\n")},
	}

	var out strings.Builder
	Run(fsys, "/tmp/project", nil, &out)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d:\n%s", len(lines), out.String())
	}
	if lines[0] != "a.py:3: TODO found" {
		t.Errorf("unexpected report line: %q", lines[0])
	}
	if lines[1] != "TODOs found" {
		t.Errorf("summary must come last, got: %q", lines[1])
	}
}
