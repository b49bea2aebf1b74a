// Package resolver maps document references (local paths, cloud-drive links)
// to readable local files with a stable identity path.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/torikomi/internal/models"
)

// ErrNoResolver is returned when no registered resolver accepts a reference.
var ErrNoResolver = errors.New("no resolver accepts reference")

// PlanEntry is a resolved document ready for processing. LocalPath is a
// readable file on disk, IdentityPath the stable key both stores index under,
// and Lease the cleanup for any temporary download (nil for local files).
type PlanEntry struct {
	LocalPath    string
	IdentityPath string
	Source       models.Source
	Lease        *Lease
}

// Lease holds cleanup work for a resolved entry. Release is safe to call more
// than once; only the first call runs the cleanup.
type Lease struct {
	once    sync.Once
	release func() error
}

func NewLease(release func() error) *Lease {
	return &Lease{release: release}
}

func (l *Lease) Release() error {
	if l == nil || l.release == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		err = l.release()
	})
	return err
}

// Resolver turns one kind of document reference into a PlanEntry.
type Resolver interface {
	// CanResolve reports whether this resolver understands the reference.
	CanResolve(ref string) bool
	// Resolve fetches the document and returns a readable plan entry.
	Resolve(ctx context.Context, ref string) (*PlanEntry, error)
}

// Registry dispatches references to resolvers in registration order; the
// first resolver whose CanResolve accepts the reference wins.
type Registry struct {
	resolvers []Resolver
}

func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: resolvers}
}

// Register appends a resolver. Earlier registrations take precedence.
func (r *Registry) Register(res Resolver) {
	r.resolvers = append(r.resolvers, res)
}

// Resolve finds the first matching resolver and resolves the reference. A
// reference no resolver accepts fails with ErrNoResolver.
func (r *Registry) Resolve(ctx context.Context, ref string) (*PlanEntry, error) {
	for _, res := range r.resolvers {
		if res.CanResolve(ref) {
			return res.Resolve(ctx, ref)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoResolver, ref)
}
