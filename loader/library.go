package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/bones"
)

// Library keeps a DataCache in sync with a directory of YAML descriptors.
// Each file holds one skeleton. Library is safe for concurrent use.
type Library struct {
	dir         string
	cache       *bones.DataCache
	log         *zap.Logger
	concurrency int

	mu     sync.Mutex
	byPath map[string]entry
}

type entry struct {
	name        string
	fingerprint uint64
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger used for reload reports.
func WithLogger(log *zap.Logger) Option {
	return func(l *Library) {
		if log != nil {
			l.log = log
		}
	}
}

// WithConcurrency bounds the number of files parsed at once by LoadAll.
func WithConcurrency(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLibrary returns a library reading descriptors from dir into cache.
func NewLibrary(dir string, cache *bones.DataCache, opts ...Option) *Library {
	l := &Library{
		dir:         dir,
		cache:       cache,
		log:         zap.NewNop(),
		concurrency: runtime.GOMAXPROCS(0),
		byPath:      make(map[string]entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the descriptor directory.
func (l *Library) Dir() string { return l.dir }

// Cache returns the cache the library fills.
func (l *Library) Cache() *bones.DataCache { return l.cache }

// LoadAll parses every descriptor in the directory in parallel and adds the
// results to the cache. Files that fail are skipped and reported together;
// the names of the skeletons loaded are returned sorted.
func (l *Library) LoadAll(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("loader: read dir %s: %w", l.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && IsDescriptor(e.Name()) {
			paths = append(paths, filepath.Join(l.dir, e.Name()))
		}
	}

	var (
		mu    sync.Mutex
		names []string
		errs  []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			name, _, err := l.Reload(path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			names = append(names, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	l.log.Info("descriptors loaded", zap.String("dir", l.dir), zap.Int("skeletons", len(names)), zap.Int("failed", len(errs)))
	return names, errors.Join(errs...)
}

// Reload parses path and replaces the cached skeleton when the file content
// changed since it was last loaded. It reports the skeleton name and whether
// the cache was updated. When parsing or compiling fails the previous
// version stays cached.
func (l *Library) Reload(path string) (string, bool, error) {
	def, fp, err := ParseFile(path)
	if err != nil {
		l.log.Warn("descriptor rejected", zap.String("path", path), zap.Error(err))
		return "", false, err
	}

	l.mu.Lock()
	prev, seen := l.byPath[path]
	l.mu.Unlock()
	if seen && prev.fingerprint == fp && prev.name == def.Name {
		if _, ok := l.cache.Get(def.Name); ok {
			return def.Name, false, nil
		}
	}

	if _, err := l.cache.Add(def); err != nil {
		l.log.Warn("descriptor rejected", zap.String("path", path), zap.Error(err))
		return def.Name, false, fmt.Errorf("loader: %s: %w", path, err)
	}

	l.mu.Lock()
	l.byPath[path] = entry{name: def.Name, fingerprint: fp}
	l.mu.Unlock()
	if seen && prev.name != def.Name {
		l.cache.Evict(prev.name)
	}
	l.log.Debug("descriptor loaded",
		zap.String("path", path),
		zap.String("skeleton", def.Name),
		zap.Uint64("fingerprint", fp))
	return def.Name, true, nil
}

// Remove evicts the skeleton loaded from path. It reports the evicted name.
func (l *Library) Remove(path string) (string, bool) {
	l.mu.Lock()
	e, ok := l.byPath[path]
	delete(l.byPath, path)
	l.mu.Unlock()
	if !ok {
		return "", false
	}
	l.cache.Evict(e.name)
	l.log.Debug("descriptor removed", zap.String("path", path), zap.String("skeleton", e.name))
	return e.name, true
}

// Fingerprint returns the content hash of the descriptor last loaded from
// path.
func (l *Library) Fingerprint(path string) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byPath[path]
	return e.fingerprint, ok
}

// Loader returns a bones.LoaderFunc resolving a skeleton name to
// <dir>/<name>.yaml (or .yml) for DataCache.GetOrLoad.
func (l *Library) Loader() bones.LoaderFunc {
	return func(ctx context.Context, name string) (bones.SkeletonDef, error) {
		if err := ctx.Err(); err != nil {
			return bones.SkeletonDef{}, err
		}
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(l.dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			def, fp, err := ParseFile(path)
			if err != nil {
				return bones.SkeletonDef{}, err
			}
			l.mu.Lock()
			l.byPath[path] = entry{name: def.Name, fingerprint: fp}
			l.mu.Unlock()
			return def, nil
		}
		return bones.SkeletonDef{}, fmt.Errorf("loader: %q in %s: %w", name, l.dir, bones.ErrSkeletonNotFound)
	}
}
