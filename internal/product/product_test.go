package product

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

func TestDirFormatWidensWithVolume(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "p_ncn1_%03d"},
		{1001, "p_ncn1_%04d"},
		{10001, "p_ncn1_%05d"},
	}
	for _, c := range cases {
		if got := DirFormat("ncn1", c.n); got != c.want {
			t.Errorf("DirFormat(ncn1, %d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestSubdirNames(t *testing.T) {
	names := SubdirNames("ncn1", 3)
	want := []string{"p_ncn1_001", "p_ncn1_002", "p_ncn1_003"}
	for i, w := range want {
		if names[i] != w {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], w)
		}
	}
}

func TestPrepareDownloadDirIsUniqueAndWritable(t *testing.T) {
	base := t.TempDir()
	p := New(nil, base)

	d1, err := p.PrepareDownloadDir("ncn1")
	if err != nil {
		t.Fatalf("PrepareDownloadDir: %v", err)
	}
	d2, err := p.PrepareDownloadDir("ncn1")
	if err != nil {
		t.Fatalf("PrepareDownloadDir: %v", err)
	}
	if d1 == d2 {
		t.Fatalf("expected two calls to produce distinct directories, both got %q", d1)
	}
	if info, err := os.Stat(d1); err != nil || !info.IsDir() {
		t.Fatalf("expected %q to be a writable directory: %v", d1, err)
	}
}

func TestListDownloadedDirs(t *testing.T) {
	base := t.TempDir()
	os.Mkdir(filepath.Join(base, "p_ncn1_001"), 0o755)
	os.Mkdir(filepath.Join(base, "p_ncn1_002"), 0o755)
	os.WriteFile(filepath.Join(base, "not_a_dir.txt"), []byte("x"), 0o644)

	p := New(nil, t.TempDir())
	dirs, err := p.ListDownloadedDirs(base)
	if err != nil {
		t.Fatalf("ListDownloadedDirs: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 directories, got %+v", dirs)
	}
}

func TestCreateManifest(t *testing.T) {
	base := t.TempDir()
	os.WriteFile(filepath.Join(base, "a.tif"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(base, "b.xml"), []byte("x"), 0o644)

	p := New(nil, t.TempDir())
	name, ok := p.CreateManifest(base, "ncn1")
	if !ok {
		t.Fatalf("expected manifest creation to succeed")
	}
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if string(data) != "a.tif\nb.xml\n" {
		t.Fatalf("unexpected manifest contents: %q", data)
	}
}

func TestCreateManifestFailsOnEmptyDir(t *testing.T) {
	base := t.TempDir()
	p := New(nil, t.TempDir())
	if _, ok := p.CreateManifest(base, "ncn1"); ok {
		t.Fatalf("expected manifest creation to fail for an empty directory")
	}
}

type fakeStop struct{ scenarios map[string]bool }

func (f fakeStop) IsStopRequested(scenarioID string) bool { return f.scenarios[scenarioID] }

func TestRunScriptsCountsFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell")
	}
	r := NewRunner(nil, nil)
	scriptsArgs := [][]string{
		{"/bin/sh", "-c", "exit 0"},
		{"/bin/sh", "-c", "exit 1"},
		{"/bin/sh", "-c", "exit 0"},
	}
	n, err := r.RunScripts(context.Background(), "sc1", "ncn1", scriptsArgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 failed script, got %d", n)
	}
}

func TestRunScriptsCheckedStopsCooperatively(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a unix shell")
	}
	stop := fakeStop{scenarios: map[string]bool{"sc1": true}}
	r := NewRunner(nil, stop)
	scriptsArgs := [][]string{
		{"/bin/sh", "-c", "exit 0"},
	}
	n, err := r.RunScripts(context.Background(), "sc1", "ncn1", scriptsArgs)
	if n != 0 {
		t.Fatalf("expected no scripts run once stop was observed, ran %d", n)
	}
	var stopErr *ingesterr.StopRequest
	if !isStopRequest(err, &stopErr) {
		t.Fatalf("expected a *ingesterr.StopRequest, got %v", err)
	}
}

func isStopRequest(err error, target **ingesterr.StopRequest) bool {
	se, ok := err.(*ingesterr.StopRequest)
	if ok {
		*target = se
	}
	return ok
}
