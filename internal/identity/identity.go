// Package identity derives stable content-based keys for discovered projects.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"

	"github.com/mmcdole/kondo/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Of returns the hex SHA-256 digest of input. It has no hidden state: the
// same input always yields the same identity.
func Of(ctx context.Context, input string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(input))
	return domain.Identity(hex.EncodeToString(sum[:])), nil
}

// Digest computes an identity for a context string such as a path.
type Digest func(ctx context.Context, input string) (domain.Identity, error)

// Assigner attaches identities to batches of items.
type Assigner struct {
	digest Digest
	limit  int
}

// NewAssigner creates an Assigner. A nil digest defaults to Of; a limit < 1
// defaults to GOMAXPROCS concurrent digests.
func NewAssigner(digest Digest, limit int) *Assigner {
	if digest == nil {
		digest = Of
	}
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Assigner{digest: digest, limit: limit}
}

// Assign computes an identity for every item concurrently and returns the
// attached results in input order. The first failed digest fails the whole
// batch and no partial result is returned.
func Assign[T, R any](
	ctx context.Context,
	a *Assigner,
	items []T,
	contextOf func(T) string,
	attach func(T, domain.Identity) R,
) ([]R, error) {
	if a == nil {
		a = NewAssigner(nil, 0)
	}
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, item := range items {
		g.Go(func() error {
			c := contextOf(item)
			id, err := a.digest(gctx, c)
			if err != nil {
				return domain.IdentityFailed(c, err)
			}
			out[i] = attach(item, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Projects identifies raw backend projects by path.
func Projects(ctx context.Context, a *Assigner, raw []domain.RawProject) ([]domain.Project, error) {
	projects, err := Assign(ctx, a, raw,
		func(p domain.RawProject) string { return p.Path },
		domain.NewProject,
	)
	if err != nil {
		return nil, fmt.Errorf("assigning identities: %w", err)
	}
	return projects, nil
}
