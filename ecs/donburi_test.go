package ecs

import (
	"errors"
	"testing"

	"github.com/phanxgames/bones"

	"github.com/yohamta/donburi"
)

func testFactory(t *testing.T) *bones.Factory {
	t.Helper()
	cache := bones.NewDataCache()
	_, err := cache.Add(bones.SkeletonDef{
		Name:      "hero",
		FrameRate: 30,
		Armatures: []bones.ArmatureDef{
			{
				Name:  "knight",
				Bones: []bones.BoneDef{{Name: "root"}},
				Slots: []bones.SlotDef{{
					Name: "weapon", Bone: "root",
					Displays: []bones.DisplayDef{{Name: "sword", Type: bones.DisplayArmature, Armature: "sword", Animation: "glint"}},
				}},
				Animations: []bones.AnimationDef{{Name: "attack", Duration: 1, PlayTimes: 1}},
			},
			{
				Name:       "sword",
				Bones:      []bones.BoneDef{{Name: "root"}},
				Animations: []bones.AnimationDef{{Name: "glint", Duration: 0.5}},
			},
		},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return bones.NewFactory(cache)
}

func collect(world donburi.World) *[]ArmatureEvent {
	var got []ArmatureEvent
	AnimationEventType.Subscribe(world, func(w donburi.World, e ArmatureEvent) {
		got = append(got, e)
	})
	return &got
}

func TestSpawnStoresArmature(t *testing.T) {
	world := donburi.NewWorld()
	e, err := Spawn(world, testFactory(t), "knight", "hero", nil)
	if err != nil {
		t.Fatal(err)
	}
	a := Get(world, e)
	if a == nil || a.Name() != "knight" {
		t.Fatalf("Get = %v", a)
	}
	if world.Len() != 1 {
		t.Errorf("world has %d entities, want 1", world.Len())
	}
}

func TestSpawnFailureLeavesNoEntity(t *testing.T) {
	world := donburi.NewWorld()
	e, err := Spawn(world, testFactory(t), "dragon", "hero", nil)
	if !errors.Is(err, bones.ErrArmatureNotFound) {
		t.Fatalf("err = %v, want ErrArmatureNotFound", err)
	}
	if e != donburi.Null || world.Len() != 0 {
		t.Errorf("entity %v left behind, world has %d", e, world.Len())
	}
}

func TestAdvancePublishesTaggedEvents(t *testing.T) {
	world := donburi.NewWorld()
	got := collect(world)
	e, err := Spawn(world, testFactory(t), "knight", "hero", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Get(world, e).Animation().Play("attack", -1); err != nil {
		t.Fatal(err)
	}
	if err := Advance(world, 0); err != nil {
		t.Fatal(err)
	}
	AnimationEventType.ProcessEvents(world)

	var rootStart, childStart bool
	for _, ev := range *got {
		if ev.Entity != e {
			t.Errorf("event %v tagged with %v, want %v", ev.Type, ev.Entity, e)
		}
		if ev.Type == bones.EventStart && ev.Animation == "attack" {
			rootStart = true
		}
		if ev.Type == bones.EventStart && ev.Animation == "glint" {
			childStart = true
		}
	}
	if !rootStart || !childStart {
		t.Errorf("events = %+v, want start of attack and glint", *got)
	}
}

func TestAdvanceAppliesSpeed(t *testing.T) {
	world := donburi.NewWorld()
	got := collect(world)
	e, err := Spawn(world, testFactory(t), "knight", "hero", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Get(world, e).Animation().Play("attack", -1); err != nil {
		t.Fatal(err)
	}
	ArmatureComponent.Get(world.Entry(e)).Speed = 2
	if err := Advance(world, 0.6); err != nil {
		t.Fatal(err)
	}
	AnimationEventType.ProcessEvents(world)

	completed := false
	for _, ev := range *got {
		if ev.Type == bones.EventComplete && ev.Animation == "attack" {
			completed = true
		}
	}
	if !completed {
		t.Errorf("attack should complete after 0.6s at double speed, events = %+v", *got)
	}
}

func TestAdvanceRemovesDisposedArmatures(t *testing.T) {
	world := donburi.NewWorld()
	f := testFactory(t)
	keep, _ := Spawn(world, f, "knight", "hero", nil)
	drop, _ := Spawn(world, f, "knight", "hero", nil)
	Get(world, drop).Dispose()

	if err := Advance(world, 0.1); err != nil {
		t.Fatal(err)
	}
	if world.Valid(drop) {
		t.Error("disposed armature's entity should be removed")
	}
	if !world.Valid(keep) || Get(world, keep) == nil {
		t.Error("live armature's entity should remain")
	}
}

func TestDespawn(t *testing.T) {
	world := donburi.NewWorld()
	e, _ := Spawn(world, testFactory(t), "knight", "hero", nil)
	a := Get(world, e)
	Despawn(world, e)
	if world.Valid(e) || !a.IsDisposed() {
		t.Error("Despawn should dispose and remove")
	}
	Despawn(world, e)
}

type recordingProxy struct {
	bones.NopProxy
	created, cleared, events int
	children             int
}

func (p *recordingProxy) OnCreate(*bones.Armature) { p.created++ }
func (p *recordingProxy) OnClear()                 { p.cleared++ }
func (p *recordingProxy) OnAnimationEvent(bones.AnimationEvent) {
	p.events++
}
func (p *recordingProxy) NewChildProxy(*bones.Slot, string) bones.HostProxy {
	p.children++
	return p
}

func TestProxyForwardsToInner(t *testing.T) {
	world := donburi.NewWorld()
	inner := &recordingProxy{}
	e, err := Spawn(world, testFactory(t), "knight", "hero", inner)
	if err != nil {
		t.Fatal(err)
	}
	if inner.children != 1 {
		t.Errorf("child proxies = %d, want 1", inner.children)
	}
	// Root and child both report creation through the shared inner proxy.
	if inner.created != 2 {
		t.Errorf("created = %d, want 2", inner.created)
	}
	if err := Advance(world, 0); err != nil {
		t.Fatal(err)
	}
	if inner.events == 0 {
		t.Error("inner proxy should see animation events")
	}
	Despawn(world, e)
	if inner.cleared != 2 {
		t.Errorf("cleared = %d, want 2", inner.cleared)
	}
}
