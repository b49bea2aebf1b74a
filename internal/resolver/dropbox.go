package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/hyperjump/torikomi/internal/models"
)

// dropboxScheme is the canonical identity scheme for Dropbox documents:
// dropbox://{path}.
const dropboxScheme = "dropbox://"

// dropboxContentURL is the Dropbox content endpoint; overridable for tests.
const dropboxContentURL = "https://content.dropboxapi.com/2/files/download"

// DropboxResolver downloads Dropbox files through the files/download content
// endpoint.
type DropboxResolver struct {
	client      *http.Client
	accessToken string
	downloadURL string
}

func NewDropboxResolver(client *http.Client, accessToken string) *DropboxResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &DropboxResolver{
		client:      client,
		accessToken: accessToken,
		downloadURL: dropboxContentURL,
	}
}

func (r *DropboxResolver) CanResolve(ref string) bool {
	return strings.HasPrefix(ref, dropboxScheme)
}

func (r *DropboxResolver) Resolve(ctx context.Context, ref string) (*PlanEntry, error) {
	filePath := strings.TrimPrefix(ref, dropboxScheme)
	if filePath == "" {
		return nil, fmt.Errorf("empty dropbox path in %q", ref)
	}
	if !strings.HasPrefix(filePath, "/") {
		filePath = "/" + filePath
	}

	arg, err := json.Marshal(map[string]string{"path": filePath})
	if err != nil {
		return nil, fmt.Errorf("encode dropbox arg: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build dropbox request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download dropbox file %s: %w", filePath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download dropbox file %s: unexpected status %s", filePath, resp.Status)
	}

	identity := dropboxScheme + strings.TrimPrefix(filePath, "/")
	entry, err := writeDownload(resp.Body, path.Base(filePath), identity, models.SourceDropbox)
	if err != nil {
		return nil, fmt.Errorf("store dropbox file %s: %w", filePath, err)
	}
	return entry, nil
}

var _ Resolver = (*DropboxResolver)(nil)
