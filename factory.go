package bones

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory builds armatures from the skeletons held by a DataCache.
type Factory struct {
	cache *DataCache
	log   *zap.Logger
	debug bool
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger armatures log through. Each armature adds its
// name and instance id as fields.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// WithDebug enables debug checks: mutations of disposed armatures panic,
// deep nesting and large skeletons are warned about, and every frame logs
// timing at debug level.
func WithDebug(on bool) Option {
	return func(f *Factory) { f.debug = on }
}

// NewFactory returns a factory reading from cache. A nil cache gets a new
// empty one.
func NewFactory(cache *DataCache, opts ...Option) *Factory {
	if cache == nil {
		cache = NewDataCache()
	}
	f := &Factory{cache: cache, log: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Cache returns the factory's data cache.
func (f *Factory) Cache() *DataCache { return f.cache }

// BuildArmature builds the named armature. An empty skeletonName searches
// every cached skeleton. Child armatures referenced by slot displays are
// built recursively and start their display's animation (or their default).
// proxy.OnCreate fires once the armature is complete; a nil proxy behaves
// like NopProxy.
func (f *Factory) BuildArmature(armatureName, skeletonName string, proxy HostProxy) (*Armature, error) {
	data, err := f.cache.FindArmature(armatureName, skeletonName)
	if err != nil {
		f.log.Warn("build armature failed", zap.String("armature", armatureName), zap.Error(err))
		return nil, err
	}
	return f.BuildArmatureFromData(data, proxy)
}

// BuildArmatureFromData builds an armature from already compiled data.
func (f *Factory) BuildArmatureFromData(data *ArmatureData, proxy HostProxy) (*Armature, error) {
	a, err := f.build(data, proxy, nil)
	if err != nil {
		f.log.Warn("build armature failed", zap.String("armature", data.Name), zap.Error(err))
		return nil, err
	}
	return a, nil
}

// build constructs one armature. stack holds the armatures being built
// above it, for cycle detection.
func (f *Factory) build(data *ArmatureData, proxy HostProxy, stack []*ArmatureData) (*Armature, error) {
	if slices.Contains(stack, data) {
		return nil, fmt.Errorf("%w: armature %q hosts itself through nested displays", ErrInvalidSkeleton, data.Name)
	}
	stack = append(stack, data)

	id := uuid.NewString()
	a := newArmature(data, proxy, id, f.log.With(zap.String("armature", data.Name), zap.String("id", id)), f.debug)

	if err := f.buildChildren(a, stack); err != nil {
		for i := range a.slots {
			for _, c := range a.slots[i].children {
				if c != nil {
					c.parentSlot = nil
					c.disposeNow()
				}
			}
		}
		return nil, err
	}

	if bp, ok := a.proxy.(BindingProvider); ok {
		for i := range a.slots {
			a.slots[i].binding = bp.NewBinding(&a.slots[i])
		}
	}
	if f.debug {
		debugCheckBoneCount(a)
	}
	a.proxy.OnCreate(a)
	a.log.Debug("armature built", zap.Int("bones", len(a.bones)), zap.Int("slots", len(a.slots)))
	return a, nil
}

func (f *Factory) buildChildren(a *Armature, stack []*ArmatureData) error {
	for i := range a.slots {
		s := &a.slots[i]
		for j := range s.data.displays {
			d := &s.data.displays[j]
			if d.typ != DisplayArmature {
				continue
			}
			cd, err := f.resolveChild(a.data, d.armature)
			if err != nil {
				return fmt.Errorf("bones: slot %q display %d: %w", s.data.name, j, err)
			}
			var cp HostProxy = NopProxy{}
			if p, ok := a.proxy.(ChildProxyProvider); ok {
				if np := p.NewChildProxy(s, cd.Name); np != nil {
					cp = np
				}
			}
			child, err := f.build(cd, cp, stack)
			if err != nil {
				return fmt.Errorf("bones: slot %q display %d: %w", s.data.name, j, err)
			}
			s.children[j] = child
			child.attachTo(s)
			if d.animation != "" {
				if _, err := child.animation.Play(d.animation, -1); err != nil {
					child.animation.PlayDefault()
				}
			} else {
				child.animation.PlayDefault()
			}
		}
	}
	return nil
}

// resolveChild finds nested armature data, preferring the parent's own
// skeleton.
func (f *Factory) resolveChild(parent *ArmatureData, name string) (*ArmatureData, error) {
	if sk := parent.skeleton; sk != nil {
		if cd, ok := sk.Armature(name); ok {
			return cd, nil
		}
	}
	return f.cache.FindArmature(name, "")
}
