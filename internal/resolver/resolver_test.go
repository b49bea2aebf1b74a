package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/torikomi/internal/models"
)

type fakeResolver struct {
	accepts string
	entry   *PlanEntry
	calls   int
}

func (f *fakeResolver) CanResolve(ref string) bool { return ref == f.accepts }

func (f *fakeResolver) Resolve(ctx context.Context, ref string) (*PlanEntry, error) {
	f.calls++
	return f.entry, nil
}

func TestRegistryFirstMatchWins(t *testing.T) {
	first := &fakeResolver{accepts: "doc", entry: &PlanEntry{IdentityPath: "first"}}
	second := &fakeResolver{accepts: "doc", entry: &PlanEntry{IdentityPath: "second"}}
	reg := NewRegistry(first, second)

	entry, err := reg.Resolve(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if entry.IdentityPath != "first" {
		t.Fatalf("expected first resolver to win, got %q", entry.IdentityPath)
	}
	if second.calls != 0 {
		t.Fatalf("second resolver should not be called, got %d calls", second.calls)
	}
}

func TestRegistryNoResolver(t *testing.T) {
	reg := NewRegistry(&fakeResolver{accepts: "other"})
	_, err := reg.Resolve(context.Background(), "doc")
	if !errors.Is(err, ErrNoResolver) {
		t.Fatalf("expected ErrNoResolver, got %v", err)
	}
}

func TestLocalResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewLocalResolver()
	if !r.CanResolve(path) {
		t.Fatal("expected CanResolve true for existing file")
	}
	if r.CanResolve("gdrive://abc") {
		t.Fatal("expected CanResolve false for scheme reference")
	}
	if r.CanResolve(filepath.Join(dir, "missing.pdf")) {
		t.Fatal("expected CanResolve false for missing file")
	}

	entry, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if entry.LocalPath != path || entry.IdentityPath != path {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Source != models.SourceLocal {
		t.Errorf("source = %q", entry.Source)
	}
	if entry.Lease != nil {
		t.Error("local entries should not carry a lease")
	}
}

func TestLocalResolverRejectsDirectory(t *testing.T) {
	if _, err := NewLocalResolver().Resolve(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for directory reference")
	}
}

func TestLeaseReleaseOnce(t *testing.T) {
	calls := 0
	lease := NewLease(func() error {
		calls++
		return nil
	})
	for i := 0; i < 3; i++ {
		if err := lease.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 release call, got %d", calls)
	}
}

func TestNilLeaseRelease(t *testing.T) {
	var lease *Lease
	if err := lease.Release(); err != nil {
		t.Fatalf("nil lease Release: %v", err)
	}
}

func TestCanResolveSchemes(t *testing.T) {
	od := NewOneDriveResolver(nil, "token")
	for _, ref := range []string{
		"onedrive://drive1/item1",
		"https://1drv.ms/w/s!abc",
		"https://contoso.sharepoint.com/:w:/g/doc",
	} {
		if !od.CanResolve(ref) {
			t.Errorf("onedrive should accept %q", ref)
		}
	}
	if od.CanResolve("dropbox://a.pdf") {
		t.Error("onedrive should reject dropbox reference")
	}

	db := NewDropboxResolver(nil, "token")
	if !db.CanResolve("dropbox://reports/q3.pdf") {
		t.Error("dropbox should accept dropbox:// reference")
	}
	if db.CanResolve("onedrive://d/i") {
		t.Error("dropbox should reject onedrive reference")
	}
}

func TestWriteDownloadLeaseCleansUp(t *testing.T) {
	entry, err := writeDownload(strings.NewReader("content"), "doc.txt", "gdrive://id1", models.SourceGoogleDrive)
	if err != nil {
		t.Fatalf("writeDownload: %v", err)
	}
	data, err := os.ReadFile(entry.LocalPath)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("download content = %q", data)
	}
	if err := entry.Lease.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(entry.LocalPath); !os.IsNotExist(err) {
		t.Fatal("expected temp file removed after release")
	}
}
