package bones

import (
	"fmt"
	"math"
	"testing"
)

// heroSkeleton has two bones (A root, B child at (10, 0)), an image slot on
// B, a bounding box slot on A and two animations.
func heroSkeleton() SkeletonDef {
	return SkeletonDef{
		Name:      "hero",
		FrameRate: 24,
		Armatures: []ArmatureDef{{
			Name: "hero",
			Bones: []BoneDef{
				{Name: "A"},
				{Name: "B", Parent: "A", Transform: Transform{X: 10}, Length: 5},
			},
			Slots: []SlotDef{
				{
					Name: "body", Bone: "B", DisplayIndex: 0,
					Displays: []DisplayDef{
						{Name: "idle_0", Region: "idle_0"},
						{Name: "walk_0", Region: "walk_0"},
						{Name: "walk_1", Region: "walk_1"},
					},
				},
				{
					Name: "hit", Bone: "A", DisplayIndex: 0, ZOrder: 1,
					Displays: []DisplayDef{{
						Name: "box", Type: DisplayBoundingBox,
						BoundingBox: &BoundingBoxDef{Type: BoundingBoxRectangle, Width: 20, Height: 10},
					}},
				},
			},
			Animations: []AnimationDef{
				{
					Name:     "walk",
					Duration: 1,
					BoneTimelines: []BoneTimelineDef{{
						Bone: "A",
						Frames: []BoneFrame{
							{Time: 0},
							{Time: 1, Transform: Transform{Rotation: math.Pi / 2}},
						},
					}},
					SlotTimelines: []SlotTimelineDef{{
						Slot: "body",
						Frames: []SlotFrame{
							{Time: 0, DisplayIndex: 1},
							{Time: 0.5, DisplayIndex: 2},
						},
					}},
					Events: []FrameEventDef{{Time: 0.5, Name: "step", Bone: "B", Data: "left"}},
				},
				{
					Name:       "idle",
					Duration:   2,
					PlayTimes:  0,
					FadeInTime: 0.5,
					SlotTimelines: []SlotTimelineDef{{
						Slot: "body",
						Frames: []SlotFrame{
							{Time: 0, DisplayIndex: 0},
							{Time: 2, DisplayIndex: 0, Color: ColorTransform{Multiplier: Color{1, 1, 1, 0.5}}},
						},
					}},
				},
			},
			DefaultAnimation: "idle",
		}},
	}
}

// knightSkeleton hosts a "sword" child armature in its "weapon" slot.
func knightSkeleton() SkeletonDef {
	return SkeletonDef{
		Name: "knight",
		Armatures: []ArmatureDef{
			{
				Name:  "knight",
				Bones: []BoneDef{{Name: "root"}},
				Slots: []SlotDef{{
					Name: "weapon", Bone: "root",
					Displays: []DisplayDef{
						{Name: "sword", Type: DisplayArmature, Armature: "sword", Animation: "swing"},
						{Name: "empty", Region: "empty"},
					},
				}},
			},
			{
				Name:  "sword",
				Bones: []BoneDef{{Name: "blade", Transform: Transform{X: 5}}},
				Slots: []SlotDef{{
					Name: "edge", Bone: "blade",
					Displays: []DisplayDef{{
						Name: "edge", Type: DisplayBoundingBox,
						BoundingBox: &BoundingBoxDef{Type: BoundingBoxEllipse, Width: 4, Height: 4},
					}},
				}},
				Animations: []AnimationDef{{Name: "swing", Duration: 1}},
			},
		},
	}
}

func newTestFactory(t *testing.T, defs ...SkeletonDef) *Factory {
	t.Helper()
	cache := NewDataCache()
	for _, d := range defs {
		if _, err := cache.Add(d); err != nil {
			t.Fatalf("Add(%q): %v", d.Name, err)
		}
	}
	return NewFactory(cache)
}

func buildHero(t *testing.T, proxy HostProxy) *Armature {
	t.Helper()
	a, err := newTestFactory(t, heroSkeleton()).BuildArmature("hero", "", proxy)
	if err != nil {
		t.Fatalf("BuildArmature: %v", err)
	}
	return a
}

func mustAdvance(t *testing.T, a *Armature, dt float64) {
	t.Helper()
	if err := a.AdvanceTime(dt); err != nil {
		t.Fatalf("AdvanceTime(%v): %v", dt, err)
	}
}

// recordingProxy counts lifecycle callbacks and records the order of pose
// updates and events.
type recordingProxy struct {
	created  int
	poses    int
	clears   int
	displays []string
	events   []AnimationEvent
	order    []string
	onPose   func(a *Armature)

	bindings map[string]*recordingBinding
	children map[string]*recordingProxy
}

func newRecordingProxy() *recordingProxy {
	return &recordingProxy{
		bindings: make(map[string]*recordingBinding),
		children: make(map[string]*recordingProxy),
	}
}

func (p *recordingProxy) OnCreate(*Armature) { p.created++ }

func (p *recordingProxy) OnPoseUpdated(a *Armature) {
	p.poses++
	p.order = append(p.order, "pose")
	if p.onPose != nil {
		p.onPose(a)
	}
}

func (p *recordingProxy) OnDisplayChanged(s *Slot) {
	p.displays = append(p.displays, fmt.Sprintf("%s:%d", s.Name(), s.DisplayIndex()))
}

func (p *recordingProxy) OnClear() { p.clears++ }

func (p *recordingProxy) OnAnimationEvent(e AnimationEvent) {
	p.events = append(p.events, e)
	p.order = append(p.order, e.Type.String())
}

func (p *recordingProxy) NewBinding(s *Slot) DisplayBinding {
	b := &recordingBinding{}
	p.bindings[s.Name()] = b
	return b
}

func (p *recordingProxy) NewChildProxy(s *Slot, armatureName string) HostProxy {
	c := newRecordingProxy()
	p.children[s.Name()+"/"+armatureName] = c
	return c
}

func (p *recordingProxy) eventTypes() []EventType {
	out := make([]EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingBinding struct {
	displays   int
	transforms int
	colors     int
	zorders    int
	disposed   int
	panicOn    string
}

func (b *recordingBinding) UpdateDisplay(*Slot) { b.displays++ }

func (b *recordingBinding) UpdateTransform(*Slot) {
	if b.panicOn == "transform" {
		panic("binding exploded")
	}
	b.transforms++
}

func (b *recordingBinding) UpdateColor(*Slot)  { b.colors++ }
func (b *recordingBinding) UpdateZOrder(*Slot) { b.zorders++ }
func (b *recordingBinding) Dispose(*Slot)      { b.disposed++ }

func assertWorldTranslation(t *testing.T, name string, m Matrix, x, y float64) {
	t.Helper()
	if math.Abs(m.Tx-x) > 1e-9 || math.Abs(m.Ty-y) > 1e-9 {
		t.Errorf("%s translation = (%v, %v), want (%v, %v)", name, m.Tx, m.Ty, x, y)
	}
}
