package resolver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/torikomi/internal/models"
)

// onedriveScheme is the canonical identity scheme for OneDrive documents:
// onedrive://{driveId}/{itemId}.
const onedriveScheme = "onedrive://"

// graphBaseURL is the Microsoft Graph endpoint; overridable for tests.
const graphBaseURL = "https://graph.microsoft.com/v1.0"

// OneDriveResolver downloads OneDrive and SharePoint documents through the
// Microsoft Graph REST API. Share links (1drv.ms, sharepoint.com) are first
// resolved to a drive item via the shares endpoint.
type OneDriveResolver struct {
	client      *http.Client
	accessToken string
	baseURL     string
}

func NewOneDriveResolver(client *http.Client, accessToken string) *OneDriveResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &OneDriveResolver{
		client:      client,
		accessToken: accessToken,
		baseURL:     graphBaseURL,
	}
}

func (r *OneDriveResolver) CanResolve(ref string) bool {
	return strings.HasPrefix(ref, onedriveScheme) ||
		strings.Contains(ref, "1drv.ms/") ||
		strings.Contains(ref, "sharepoint.com/")
}

// driveItem is the subset of the Graph drive item payload we need.
type driveItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	ParentReference struct {
		DriveID string `json:"driveId"`
	} `json:"parentReference"`
}

func (r *OneDriveResolver) Resolve(ctx context.Context, ref string) (*PlanEntry, error) {
	driveID, itemID, name, err := r.locate(ctx, ref)
	if err != nil {
		return nil, err
	}

	contentURL := fmt.Sprintf("%s/drives/%s/items/%s/content", r.baseURL, driveID, itemID)
	resp, err := r.get(ctx, contentURL)
	if err != nil {
		return nil, fmt.Errorf("download onedrive item %s: %w", itemID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download onedrive item %s: unexpected status %s", itemID, resp.Status)
	}

	source := models.SourceOneDrive
	if strings.Contains(ref, "sharepoint.com/") {
		source = models.SourceSharePoint
	}
	identity := fmt.Sprintf("%s%s/%s", onedriveScheme, driveID, itemID)
	entry, err := writeDownload(resp.Body, name, identity, source)
	if err != nil {
		return nil, fmt.Errorf("store onedrive item %s: %w", itemID, err)
	}
	return entry, nil
}

// locate turns a reference into (driveId, itemId, fileName). Canonical
// onedrive:// references still need a metadata call for the file name; share
// links go through the shares endpoint.
func (r *OneDriveResolver) locate(ctx context.Context, ref string) (string, string, string, error) {
	var itemURL string
	if strings.HasPrefix(ref, onedriveScheme) {
		rest := strings.TrimPrefix(ref, onedriveScheme)
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", "", fmt.Errorf("malformed onedrive reference %q, want onedrive://{driveId}/{itemId}", ref)
		}
		itemURL = fmt.Sprintf("%s/drives/%s/items/%s", r.baseURL, parts[0], parts[1])
	} else {
		// Graph share-link encoding: "u!" + unpadded URL-safe base64 of the link.
		encoded := "u!" + strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(ref)), "=")
		itemURL = fmt.Sprintf("%s/shares/%s/driveItem", r.baseURL, encoded)
	}

	resp, err := r.get(ctx, itemURL)
	if err != nil {
		return "", "", "", fmt.Errorf("resolve onedrive reference: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("resolve onedrive reference: unexpected status %s", resp.Status)
	}

	var item driveItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", "", "", fmt.Errorf("decode onedrive item: %w", err)
	}
	if item.ID == "" || item.ParentReference.DriveID == "" {
		return "", "", "", fmt.Errorf("onedrive item for %q is missing drive or item id", ref)
	}
	return item.ParentReference.DriveID, item.ID, item.Name, nil
}

func (r *OneDriveResolver) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.accessToken)
	return r.client.Do(req)
}

var _ Resolver = (*OneDriveResolver)(nil)
