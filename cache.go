package bones

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoaderFunc produces the definition of the named skeleton. It is called by
// DataCache.GetOrLoad on a cache miss.
type LoaderFunc func(ctx context.Context, name string) (SkeletonDef, error)

// DataCache holds compiled skeletons shared read-only by every armature
// built from them. It is safe for concurrent use.
type DataCache struct {
	mu        sync.RWMutex
	skeletons map[string]*SkeletonData
	loads     singleflight.Group
	log       *zap.Logger
}

// CacheOption configures a DataCache.
type CacheOption func(*DataCache)

// WithCacheLogger sets the logger used for load and eviction messages.
func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *DataCache) {
		if l != nil {
			c.log = l
		}
	}
}

// NewDataCache returns an empty cache.
func NewDataCache(opts ...CacheOption) *DataCache {
	c := &DataCache{
		skeletons: make(map[string]*SkeletonData),
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Add compiles def and stores it under def.Name, replacing any skeleton of
// the same name. Armatures already built keep the data they were built with.
func (c *DataCache) Add(def SkeletonDef) (*SkeletonData, error) {
	sk, err := compileSkeleton(def)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.skeletons[sk.Name] = sk
	c.mu.Unlock()
	c.log.Debug("skeleton added", zap.String("skeleton", sk.Name), zap.Int("armatures", len(sk.order)))
	return sk, nil
}

// Get returns the named skeleton.
func (c *DataCache) Get(name string) (*SkeletonData, bool) {
	c.mu.RLock()
	sk, ok := c.skeletons[name]
	c.mu.RUnlock()
	return sk, ok
}

// Evict removes the named skeleton and reports whether it was present.
func (c *DataCache) Evict(name string) bool {
	c.mu.Lock()
	_, ok := c.skeletons[name]
	delete(c.skeletons, name)
	c.mu.Unlock()
	if ok {
		c.log.Debug("skeleton evicted", zap.String("skeleton", name))
	}
	return ok
}

// Names returns the cached skeleton names, sorted.
func (c *DataCache) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.skeletons))
	for n := range c.skeletons {
		names = append(names, n)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of cached skeletons.
func (c *DataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.skeletons)
}

// GetOrLoad returns the named skeleton, calling load on a miss. Concurrent
// misses for the same name share a single load. The loaded definition is
// always stored under name, whatever name it declares.
func (c *DataCache) GetOrLoad(ctx context.Context, name string, load LoaderFunc) (*SkeletonData, error) {
	if sk, ok := c.Get(name); ok {
		return sk, nil
	}
	ch := c.loads.DoChan(name, func() (any, error) {
		if sk, ok := c.Get(name); ok {
			return sk, nil
		}
		def, err := load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("bones: load skeleton %q: %w", name, err)
		}
		if def.Name != name {
			if def.Name != "" {
				c.log.Warn("loaded skeleton renamed to requested name",
					zap.String("skeleton", name), zap.String("declared", def.Name))
			}
			def.Name = name
		}
		c.log.Info("skeleton loaded", zap.String("skeleton", def.Name))
		return c.Add(def)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SkeletonData), nil
	}
}

// FindArmature looks up compiled armature data. An empty skeletonName
// searches every skeleton in name order.
func (c *DataCache) FindArmature(armatureName, skeletonName string) (*ArmatureData, error) {
	if skeletonName != "" {
		sk, ok := c.Get(skeletonName)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSkeletonNotFound, skeletonName)
		}
		ad, ok := sk.Armature(armatureName)
		if !ok {
			return nil, fmt.Errorf("%w: %q in skeleton %q", ErrArmatureNotFound, armatureName, skeletonName)
		}
		return ad, nil
	}
	for _, n := range c.Names() {
		sk, ok := c.Get(n)
		if !ok {
			continue
		}
		if ad, ok := sk.Armature(armatureName); ok {
			return ad, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrArmatureNotFound, armatureName)
}
