package resolver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	drive "google.golang.org/api/drive/v3"

	"github.com/hyperjump/torikomi/internal/models"
)

// gdriveScheme is the canonical identity scheme for Google Drive documents.
const gdriveScheme = "gdrive://"

// gdriveShareURL extracts the file id from drive.google.com share links.
var gdriveShareURL = regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)

// GoogleDriveResolver downloads Google Drive files through the Drive v3 API.
// Identity paths are normalized to gdrive://{fileId} regardless of how the
// reference was written.
type GoogleDriveResolver struct {
	service *drive.Service
}

func NewGoogleDriveResolver(service *drive.Service) *GoogleDriveResolver {
	return &GoogleDriveResolver{service: service}
}

func (r *GoogleDriveResolver) CanResolve(ref string) bool {
	return strings.HasPrefix(ref, gdriveScheme) || gdriveShareURL.MatchString(ref)
}

func (r *GoogleDriveResolver) fileID(ref string) (string, error) {
	if strings.HasPrefix(ref, gdriveScheme) {
		id := strings.TrimPrefix(ref, gdriveScheme)
		if id == "" {
			return "", fmt.Errorf("empty google drive file id in %q", ref)
		}
		return id, nil
	}
	if m := gdriveShareURL.FindStringSubmatch(ref); len(m) > 1 {
		return m[1], nil
	}
	return "", fmt.Errorf("cannot extract google drive file id from %q", ref)
}

func (r *GoogleDriveResolver) Resolve(ctx context.Context, ref string) (*PlanEntry, error) {
	id, err := r.fileID(ref)
	if err != nil {
		return nil, err
	}

	meta, err := r.service.Files.Get(id).Fields("name").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get google drive file %s: %w", id, err)
	}
	resp, err := r.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download google drive file %s: %w", id, err)
	}
	defer resp.Body.Close()

	entry, err := writeDownload(resp.Body, meta.Name, gdriveScheme+id, models.SourceGoogleDrive)
	if err != nil {
		return nil, fmt.Errorf("store google drive file %s: %w", id, err)
	}
	return entry, nil
}

// writeDownload copies a downloaded document into a temp directory, keeping
// the original file name so extension dispatch still works. The lease removes
// the whole directory.
func writeDownload(body io.Reader, fileName, identityPath string, source models.Source) (*PlanEntry, error) {
	dir, err := os.MkdirTemp("", "torikomi-download-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	localPath := filepath.Join(dir, filepath.Base(fileName))
	f, err := os.Create(localPath)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return &PlanEntry{
		LocalPath:    localPath,
		IdentityPath: identityPath,
		Source:       source,
		Lease:        NewLease(func() error { return os.RemoveAll(dir) }),
	}, nil
}

var _ Resolver = (*GoogleDriveResolver)(nil)
