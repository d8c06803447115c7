package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mmcdole/kondo/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ScanOptions defines scanning behavior.
type ScanOptions struct {
	MaxDepth       int      // 0 means unlimited; 1 means only the root's children
	FollowSymlinks bool     // whether sizing follows symlinked directories
	Excludes       []string // glob patterns matched against full path and base name
	Concurrency    int      // workers for size calculation
}

type candidate struct {
	path string
	kind projectKind
}

// Scanner finds projects under search roots and measures them.
type Scanner struct {
	opts   ScanOptions
	logger *slog.Logger
}

// NewScanner creates a scanner.
func NewScanner(opts ScanOptions, logger *slog.Logger) *Scanner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{opts: opts, logger: logger}
}

// Scan walks every root and returns the projects found, in walk order. An
// unreadable root fails the scan; unreadable directories below it are skipped.
func (s *Scanner) Scan(ctx context.Context, roots []string) ([]domain.RawProject, error) {
	var candidates []candidate
	seen := make(map[string]bool)
	for _, root := range roots {
		found, err := s.walk(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			if !seen[c.path] {
				seen[c.path] = true
				candidates = append(candidates, c)
			}
		}
	}

	projects := make([]domain.RawProject, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			size, err := s.measure(gctx, c)
			if err != nil {
				return err
			}
			projects[i] = domain.RawProject{Path: c.path, ProjectType: c.kind.Type, Size: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Scanner) walk(ctx context.Context, root string) ([]candidate, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	var found []candidate
	projects := make(map[string]projectKind)
	rootDepth := depthOf(root)

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if excluded(path, s.opts.Excludes) {
				return filepath.SkipDir
			}
			if kind, ok := projects[filepath.Dir(path)]; ok && kind.isArtifact(d.Name()) {
				return filepath.SkipDir
			}
			if s.opts.MaxDepth > 0 && depthOf(path)-rootDepth > s.opts.MaxDepth {
				return filepath.SkipDir
			}
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			s.logger.Debug("skipping unreadable directory", "path", path, "error", err)
			return filepath.SkipDir
		}
		if kind, ok := detect(entries); ok {
			projects[path] = kind
			found = append(found, candidate{path: path, kind: kind})
		}
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, err
	}
	return found, nil
}

// measure computes the size breakdown of the project's top-level entries.
func (s *Scanner) measure(ctx context.Context, c candidate) (domain.ProjectSize, error) {
	entries, err := os.ReadDir(c.path)
	if err != nil {
		return domain.ProjectSize{}, fmt.Errorf("reading %s: %w", c.path, err)
	}

	var size domain.ProjectSize
	for _, e := range entries {
		full := filepath.Join(c.path, e.Name())
		n, err := entrySize(ctx, full, e, s.opts.FollowSymlinks)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.ProjectSize{}, err
		}
		if err != nil {
			s.logger.Debug("partial size", "path", full, "error", err)
		}

		artifact := e.IsDir() && c.kind.isArtifact(e.Name())
		size.Dirs = append(size.Dirs, domain.ProjectDir{FileName: e.Name(), Size: n, IsArtifact: artifact})
		if artifact {
			size.ArtifactSize += n
		} else {
			size.NonArtifactSize += n
		}
	}
	return size, nil
}

func entrySize(ctx context.Context, path string, d fs.DirEntry, followSymlink bool) (uint64, error) {
	if d.IsDir() || (followSymlink && d.Type()&os.ModeSymlink != 0) {
		n, err := dirSize(ctx, path, followSymlink)
		return uint64(n), err
	}
	info, err := d.Info()
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// dirSize computes total size in bytes of a directory tree.
func dirSize(ctx context.Context, root string, followSymlink bool) (int64, error) {
	seen := make(map[string]struct{})
	return dirSizeRec(ctx, root, followSymlink, seen)
}

func dirSizeRec(ctx context.Context, root string, followSymlink bool, seen map[string]struct{}) (int64, error) {
	var total int64
	var firstErr error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return nil // continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&os.ModeSymlink != 0 {
			if !followSymlink {
				return nil
			}
			info, e := os.Stat(path)
			if e != nil {
				return nil // dangling
			}
			if !info.IsDir() {
				total += info.Size()
				return nil
			}
			real, e := filepath.EvalSymlinks(path)
			if e != nil {
				return nil
			}
			if _, ok := seen[real]; ok {
				return nil
			}
			seen[real] = struct{}{}
			sz, e := dirSizeRec(ctx, real, followSymlink, seen)
			if e != nil && firstErr == nil {
				firstErr = e
			}
			total += sz
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, e := d.Info()
		if e != nil {
			if firstErr == nil {
				firstErr = e
			}
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, firstErr
}

func depthOf(p string) int {
	clean := filepath.Clean(p)
	depth := 0
	for {
		parent := filepath.Dir(clean)
		if parent == clean {
			break
		}
		depth++
		clean = parent
	}
	return depth
}

func excluded(p string, patterns []string) bool {
	base := filepath.Base(p)
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if ok, _ := filepath.Match(pat, p); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}
