package ecs

import (
	"errors"
	"fmt"

	"github.com/phanxgames/bones"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// ArmatureEvent is an animation event tagged with the entity that owns the
// armature. Events of child armatures carry their root's entity.
type ArmatureEvent struct {
	Entity donburi.Entity
	bones.AnimationEvent
}

// AnimationEventType is the Donburi event type for armature animation events.
var AnimationEventType = events.NewEventType[ArmatureEvent]()

// ArmatureData is the component value stored on armature entities.
type ArmatureData struct {
	Armature *bones.Armature
	// Speed scales the dt passed to Advance. Zero means 1.
	Speed float64
}

// ArmatureComponent holds the armature of an entity.
var ArmatureComponent = donburi.NewComponentType[ArmatureData]()

var armatureQuery = donburi.NewQuery(filter.Contains(ArmatureComponent))

// Proxy publishes an armature's events into a world. It forwards every
// callback to an optional inner proxy so a renderer can observe the same
// armature.
type Proxy struct {
	world  donburi.World
	entity donburi.Entity
	inner  bones.HostProxy
}

// NewProxy returns a proxy publishing events for entity. inner may be nil.
func NewProxy(world donburi.World, entity donburi.Entity, inner bones.HostProxy) *Proxy {
	return &Proxy{world: world, entity: entity, inner: inner}
}

// Entity returns the entity events are tagged with.
func (p *Proxy) Entity() donburi.Entity { return p.entity }

func (p *Proxy) OnCreate(a *bones.Armature) {
	if p.inner != nil {
		p.inner.OnCreate(a)
	}
}

func (p *Proxy) OnPoseUpdated(a *bones.Armature) {
	if p.inner != nil {
		p.inner.OnPoseUpdated(a)
	}
}

func (p *Proxy) OnDisplayChanged(s *bones.Slot) {
	if p.inner != nil {
		p.inner.OnDisplayChanged(s)
	}
}

func (p *Proxy) OnClear() {
	if p.inner != nil {
		p.inner.OnClear()
	}
}

func (p *Proxy) NewBinding(s *bones.Slot) bones.DisplayBinding {
	if bp, ok := p.inner.(bones.BindingProvider); ok {
		return bp.NewBinding(s)
	}
	return nil
}

func (p *Proxy) NewChildProxy(s *bones.Slot, name string) bones.HostProxy {
	var inner bones.HostProxy
	if cp, ok := p.inner.(bones.ChildProxyProvider); ok {
		inner = cp.NewChildProxy(s, name)
	}
	return &Proxy{world: p.world, entity: p.entity, inner: inner}
}

func (p *Proxy) OnAnimationEvent(e bones.AnimationEvent) {
	AnimationEventType.Publish(p.world, ArmatureEvent{Entity: p.entity, AnimationEvent: e})
	if l, ok := p.inner.(bones.EventListener); ok {
		l.OnAnimationEvent(e)
	}
}

// Spawn builds an armature and stores it on a new entity. inner receives
// the armature's proxy callbacks alongside the world and may be nil. On
// error no entity is left behind.
func Spawn(world donburi.World, f *bones.Factory, armature, skeleton string, inner bones.HostProxy) (donburi.Entity, error) {
	entity := world.Create(ArmatureComponent)
	a, err := f.BuildArmature(armature, skeleton, NewProxy(world, entity, inner))
	if err != nil {
		world.Remove(entity)
		return donburi.Null, fmt.Errorf("ecs: spawn %q: %w", armature, err)
	}
	ArmatureComponent.SetValue(world.Entry(entity), ArmatureData{Armature: a})
	return entity, nil
}

// Get returns the armature stored on entity, or nil.
func Get(world donburi.World, entity donburi.Entity) *bones.Armature {
	if !world.Valid(entity) {
		return nil
	}
	entry := world.Entry(entity)
	if !entry.HasComponent(ArmatureComponent) {
		return nil
	}
	return ArmatureComponent.Get(entry).Armature
}

// Despawn disposes the entity's armature and removes the entity.
func Despawn(world donburi.World, entity donburi.Entity) {
	if a := Get(world, entity); a != nil {
		a.Dispose()
	}
	if world.Valid(entity) {
		world.Remove(entity)
	}
}

// Advance steps every armature in the world by dt seconds, then removes
// entities whose armature has been disposed. Errors from individual
// armatures are joined; the rest still advance.
func Advance(world donburi.World, dt float64) error {
	var (
		live []*donburi.Entry
		errs []error
	)
	armatureQuery.Each(world, func(entry *donburi.Entry) {
		live = append(live, entry)
	})
	for _, entry := range live {
		d := ArmatureComponent.Get(entry)
		if d.Armature == nil || d.Armature.IsDisposed() {
			continue
		}
		speed := d.Speed
		if speed == 0 {
			speed = 1
		}
		if err := d.Armature.AdvanceTime(dt * speed); err != nil {
			errs = append(errs, fmt.Errorf("ecs: entity %v: %w", entry.Entity(), err))
		}
	}
	for _, entry := range live {
		if !entry.Valid() {
			continue
		}
		if d := ArmatureComponent.Get(entry); d.Armature == nil || d.Armature.IsDisposed() {
			world.Remove(entry.Entity())
		}
	}
	return errors.Join(errs...)
}
