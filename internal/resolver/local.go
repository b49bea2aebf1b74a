package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/torikomi/internal/models"
)

// LocalResolver resolves plain filesystem paths. The absolute path doubles as
// the identity path, and no lease is needed since nothing is downloaded.
type LocalResolver struct{}

func NewLocalResolver() *LocalResolver {
	return &LocalResolver{}
}

func (r *LocalResolver) CanResolve(ref string) bool {
	if strings.Contains(ref, "://") {
		return false
	}
	_, err := os.Stat(ref)
	return err == nil
}

func (r *LocalResolver) Resolve(ctx context.Context, ref string) (*PlanEntry, error) {
	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve local path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a document", abs)
	}
	return &PlanEntry{
		LocalPath:    abs,
		IdentityPath: abs,
		Source:       models.SourceLocal,
	}, nil
}

var _ Resolver = (*LocalResolver)(nil)
