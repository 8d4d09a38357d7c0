package bones

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func compileErr(t *testing.T, def SkeletonDef) error {
	t.Helper()
	sk, err := compileSkeleton(def)
	if err == nil {
		t.Fatalf("compileSkeleton succeeded, want error (armatures %v)", sk.ArmatureNames())
	}
	if !errors.Is(err, ErrInvalidSkeleton) {
		t.Fatalf("err = %v, want ErrInvalidSkeleton", err)
	}
	return err
}

func oneArmature(a ArmatureDef) SkeletonDef {
	if a.Name == "" {
		a.Name = "arm"
	}
	return SkeletonDef{Name: "sk", Armatures: []ArmatureDef{a}}
}

func TestCompileRejectsUnknownParent(t *testing.T) {
	err := compileErr(t, oneArmature(ArmatureDef{Bones: []BoneDef{{Name: "a", Parent: "ghost"}}}))
	if !strings.Contains(err.Error(), `unknown parent "ghost"`) {
		t.Errorf("err = %v", err)
	}
}

func TestCompileRejectsParentCycle(t *testing.T) {
	err := compileErr(t, oneArmature(ArmatureDef{Bones: []BoneDef{
		{Name: "root"},
		{Name: "a", Parent: "b"},
		{Name: "b", Parent: "a"},
	}}))
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("err = %v", err)
	}
}

func TestCompileRejectsDuplicates(t *testing.T) {
	compileErr(t, oneArmature(ArmatureDef{Bones: []BoneDef{{Name: "a"}, {Name: "a"}}}))
	compileErr(t, oneArmature(ArmatureDef{
		Bones: []BoneDef{{Name: "a"}},
		Slots: []SlotDef{{Name: "s", Bone: "a"}, {Name: "s", Bone: "a"}},
	}))
	compileErr(t, SkeletonDef{Name: "sk", Armatures: []ArmatureDef{{Name: "x"}, {Name: "x"}}})
}

func TestCompileRejectsDeepHierarchy(t *testing.T) {
	bones := []BoneDef{{Name: "b0"}}
	for i := 1; i <= maxBoneDepth+1; i++ {
		bones = append(bones, BoneDef{Name: "b" + strconv.Itoa(i), Parent: "b" + strconv.Itoa(i-1)})
	}
	err := compileErr(t, oneArmature(ArmatureDef{Bones: bones}))
	if !strings.Contains(err.Error(), "maximum depth") {
		t.Errorf("err = %v", err)
	}
}

func TestCompileReportsEveryProblem(t *testing.T) {
	err := compileErr(t, oneArmature(ArmatureDef{
		Bones: []BoneDef{{Name: "a"}},
		Slots: []SlotDef{
			{Name: "s1", Bone: "nope"},
			{Name: "s2", Bone: "a", DisplayIndex: 3},
		},
		Animations: []AnimationDef{
			{Name: "run", Duration: 1, BoneTimelines: []BoneTimelineDef{{
				Bone:   "a",
				Frames: []BoneFrame{{Time: 0.5}, {Time: 0.2}},
			}}},
			{Name: "jump", Duration: 1, Events: []FrameEventDef{{Name: "late", Time: 2}}},
		},
		DefaultAnimation: "fly",
	}))
	for _, want := range []string{
		`unknown bone "nope"`,
		"default display index 3",
		"out of order",
		`event "late"`,
		`default animation "fly"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestCompileValidatesDisplays(t *testing.T) {
	cases := map[string]DisplayDef{
		"mesh without mesh":       {Type: DisplayMesh},
		"box without geometry":    {Type: DisplayBoundingBox},
		"polygon with 2 vertices": {Type: DisplayBoundingBox, BoundingBox: &BoundingBoxDef{Type: BoundingBoxPolygon, Vertices: []Vec2{{0, 0}, {1, 1}}}},
		"armature without name":   {Type: DisplayArmature},
		"bad mesh index":          {Type: DisplayMesh, Mesh: &MeshDef{Vertices: []Vec2{{0, 0}}, Indices: []uint16{0, 1, 2}}},
		"weight for unknown bone": {Type: DisplayMesh, Mesh: &MeshDef{Vertices: []Vec2{{0, 0}}, Weights: [][]VertexWeight{{{Bone: "x", Weight: 1}}}}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			compileErr(t, oneArmature(ArmatureDef{
				Bones: []BoneDef{{Name: "a"}},
				Slots: []SlotDef{{Name: "s", Bone: "a", Displays: []DisplayDef{d}}},
			}))
		})
	}
}

func TestCompileNormalizesZeroValues(t *testing.T) {
	sk, err := compileSkeleton(oneArmature(ArmatureDef{
		Bones: []BoneDef{{Name: "a", Transform: Transform{X: 3}}},
		Slots: []SlotDef{{Name: "s", Bone: "a", Displays: []DisplayDef{{Name: "img"}}}},
	}))
	if err != nil {
		t.Fatal(err)
	}
	ad, _ := sk.Armature("arm")
	if got := ad.bones[0].origin; got.ScaleX != 1 || got.ScaleY != 1 {
		t.Errorf("origin scale = %v, %v; want 1, 1", got.ScaleX, got.ScaleY)
	}
	if !ad.slots[0].color.IsIdentity() {
		t.Errorf("slot color = %v, want identity", ad.slots[0].color)
	}
	if !ad.slots[0].displays[0].matrix.IsIdentity() {
		t.Errorf("display matrix = %v, want identity", ad.slots[0].displays[0].matrix)
	}
}

func TestCompileSortsEvents(t *testing.T) {
	sk, err := compileSkeleton(oneArmature(ArmatureDef{
		Animations: []AnimationDef{{
			Name: "a", Duration: 1,
			Events: []FrameEventDef{{Name: "late", Time: 0.9}, {Name: "early", Time: 0.1}},
		}},
	}))
	if err != nil {
		t.Fatal(err)
	}
	ad, _ := sk.Armature("arm")
	ev := ad.animations["a"].events
	if ev[0].name != "early" || ev[1].name != "late" {
		t.Errorf("events = %+v, want early then late", ev)
	}
}

func TestBuildFailsWithoutInstance(t *testing.T) {
	cache := NewDataCache()
	_, err := cache.Add(oneArmature(ArmatureDef{Bones: []BoneDef{{Name: "a", Parent: "a"}}}))
	if !errors.Is(err, ErrInvalidSkeleton) {
		t.Fatalf("Add = %v, want ErrInvalidSkeleton", err)
	}
	if _, ok := cache.Get("sk"); ok {
		t.Error("invalid skeleton was cached")
	}
	a, err := NewFactory(cache).BuildArmature("arm", "sk", nil)
	if a != nil || !errors.Is(err, ErrSkeletonNotFound) {
		t.Errorf("BuildArmature = %v, %v; want nil, ErrSkeletonNotFound", a, err)
	}
}

func TestBuildRejectsNestedCycle(t *testing.T) {
	def := SkeletonDef{Name: "loop", Armatures: []ArmatureDef{
		{
			Name:  "outer",
			Bones: []BoneDef{{Name: "r"}},
			Slots: []SlotDef{{Name: "s", Bone: "r", Displays: []DisplayDef{{Type: DisplayArmature, Armature: "inner"}}}},
		},
		{
			Name:  "inner",
			Bones: []BoneDef{{Name: "r"}},
			Slots: []SlotDef{{Name: "s", Bone: "r", Displays: []DisplayDef{{Type: DisplayArmature, Armature: "outer"}}}},
		},
	}}
	proxy := newRecordingProxy()
	a, err := newTestFactory(t, def).BuildArmature("outer", "loop", proxy)
	if a != nil || !errors.Is(err, ErrInvalidSkeleton) {
		t.Fatalf("BuildArmature = %v, %v; want nil, ErrInvalidSkeleton", a, err)
	}
	if proxy.created != 0 || proxy.clears != 0 {
		t.Errorf("proxy created=%d clears=%d, want 0 0", proxy.created, proxy.clears)
	}
}
