package bones

import (
	"errors"
	"fmt"
	"sort"
)

// maxBoneDepth bounds the bone tree depth accepted at compile time.
const maxBoneDepth = 256

// SkeletonData is a compiled SkeletonDef. It is immutable and shared by every
// armature built from it.
type SkeletonData struct {
	Name      string
	FrameRate int

	armatures map[string]*ArmatureData
	order     []string
}

// Armature returns the compiled armature with the given name.
func (s *SkeletonData) Armature(name string) (*ArmatureData, bool) {
	a, ok := s.armatures[name]
	return a, ok
}

// ArmatureNames returns armature names in definition order.
func (s *SkeletonData) ArmatureNames() []string {
	return append([]string(nil), s.order...)
}

// ArmatureData is the immutable, compiled form of an ArmatureDef. Bones are
// stored parents-first; that order is fixed here and never recomputed.
type ArmatureData struct {
	Name             string
	FrameRate        int
	DefaultAnimation string

	skeleton   *SkeletonData
	bones      []boneData
	boneIndex  map[string]int
	slots      []slotData
	slotIndex  map[string]int
	animations map[string]*animationData
	animOrder  []string
}

// Skeleton returns the skeleton this armature belongs to.
func (d *ArmatureData) Skeleton() *SkeletonData { return d.skeleton }

// NumBones returns the number of bones.
func (d *ArmatureData) NumBones() int { return len(d.bones) }

// NumSlots returns the number of slots.
func (d *ArmatureData) NumSlots() int { return len(d.slots) }

// BoneNames returns bone names in update (parents-first) order.
func (d *ArmatureData) BoneNames() []string {
	names := make([]string, len(d.bones))
	for i := range d.bones {
		names[i] = d.bones[i].name
	}
	return names
}

// AnimationNames returns animation names in definition order.
func (d *ArmatureData) AnimationNames() []string {
	return append([]string(nil), d.animOrder...)
}

// HasAnimation reports whether an animation with the given name exists.
func (d *ArmatureData) HasAnimation(name string) bool {
	_, ok := d.animations[name]
	return ok
}

// AnimationDuration returns the duration of the named animation.
func (d *ArmatureData) AnimationDuration(name string) (float64, bool) {
	a, ok := d.animations[name]
	if !ok {
		return 0, false
	}
	return a.duration, true
}

type boneData struct {
	name     string
	parent   int
	children []int
	origin   Transform
	length   float64
}

type slotData struct {
	name         string
	bone         int
	displayIndex int
	zOrder       int
	color        ColorTransform
	blendMode    BlendMode
	displays     []displayData
}

type displayData struct {
	name        string
	typ         DisplayType
	transform   Transform
	matrix      Matrix
	pivot       Vec2
	region      string
	mesh        *meshData
	boundingBox *BoundingBoxDef
	armature    string
	animation   string
}

type meshData struct {
	vertices []Vec2
	uvs      []Vec2
	indices  []uint16
	weights  [][]boneWeight
}

type boneWeight struct {
	bone   int
	weight float64
	offset Vec2
}

type animationData struct {
	name       string
	duration   float64
	playTimes  int
	fadeInTime float64
	bones      []boneTimeline
	slots      []slotTimeline
	events     []frameEvent
}

type boneTimeline struct {
	bone   int
	frames []BoneFrame
}

type slotTimeline struct {
	slot   int
	frames []SlotFrame
}

type frameEvent struct {
	time float64
	name string
	bone string
	data string
}

// compileSkeleton validates def and builds its immutable runtime data. Every
// problem found is reported; the returned error wraps ErrInvalidSkeleton.
func compileSkeleton(def SkeletonDef) (*SkeletonData, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: skeleton has no name", ErrInvalidSkeleton)
	}
	sk := &SkeletonData{
		Name:      def.Name,
		FrameRate: def.FrameRate,
		armatures: make(map[string]*ArmatureData, len(def.Armatures)),
	}
	var errs []error
	for i := range def.Armatures {
		ad := &def.Armatures[i]
		if _, dup := sk.armatures[ad.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate armature %q", ErrInvalidSkeleton, ad.Name))
			continue
		}
		data, err := compileArmature(*ad, def.FrameRate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		data.skeleton = sk
		sk.armatures[ad.Name] = data
		sk.order = append(sk.order, ad.Name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return sk, nil
}

func compileArmature(def ArmatureDef, frameRate int) (*ArmatureData, error) {
	c := armatureCompiler{name: def.Name}
	if def.Name == "" {
		c.fail("armature has no name")
		return nil, c.err()
	}
	if def.FrameRate > 0 {
		frameRate = def.FrameRate
	}
	data := &ArmatureData{
		Name:             def.Name,
		FrameRate:        frameRate,
		DefaultAnimation: def.DefaultAnimation,
	}
	data.bones, data.boneIndex = c.bones(def.Bones)
	data.slots, data.slotIndex = c.slots(def.Slots, data.boneIndex)
	data.animations, data.animOrder = c.animations(def.Animations, data.boneIndex, data.slotIndex, data.slots)
	if def.DefaultAnimation != "" {
		if _, ok := data.animations[def.DefaultAnimation]; !ok {
			c.fail("default animation %q is not defined", def.DefaultAnimation)
		}
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return data, nil
}

type armatureCompiler struct {
	name string
	errs []error
}

func (c *armatureCompiler) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.errs = append(c.errs, fmt.Errorf("%w: armature %q: %s", ErrInvalidSkeleton, c.name, msg))
}

func (c *armatureCompiler) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return errors.Join(c.errs...)
}

// bones orders bones parents-first, keeping definition order among bones
// whose parents are already placed.
func (c *armatureCompiler) bones(defs []BoneDef) ([]boneData, map[string]int) {
	byName := make(map[string]int, len(defs))
	for i, b := range defs {
		if b.Name == "" {
			c.fail("bone %d has no name", i)
			continue
		}
		if _, dup := byName[b.Name]; dup {
			c.fail("duplicate bone %q", b.Name)
			continue
		}
		byName[b.Name] = i
	}
	for _, b := range defs {
		if b.Parent == "" {
			continue
		}
		if _, ok := byName[b.Parent]; !ok {
			c.fail("bone %q references unknown parent %q", b.Name, b.Parent)
		}
	}
	if len(c.errs) > 0 {
		return nil, nil
	}

	order := make([]int, 0, len(defs))
	placed := make(map[string]int, len(defs))
	depth := make(map[string]int, len(defs))
	for len(order) < len(defs) {
		progressed := false
		for i, b := range defs {
			if _, done := placed[b.Name]; done {
				continue
			}
			if b.Parent != "" {
				if _, ok := placed[b.Parent]; !ok {
					continue
				}
				depth[b.Name] = depth[b.Parent] + 1
			}
			placed[b.Name] = len(order)
			order = append(order, i)
			progressed = true
		}
		if !progressed {
			for _, b := range defs {
				if _, done := placed[b.Name]; !done {
					c.fail("bone %q is part of a parent cycle", b.Name)
				}
			}
			return nil, nil
		}
	}

	bones := make([]boneData, len(order))
	index := make(map[string]int, len(order))
	for pos, i := range order {
		b := defs[i]
		if depth[b.Name] > maxBoneDepth {
			c.fail("bone %q exceeds maximum depth %d", b.Name, maxBoneDepth)
		}
		parent := -1
		if b.Parent != "" {
			parent = placed[b.Parent]
			bones[parent].children = append(bones[parent].children, pos)
		}
		bones[pos] = boneData{
			name:   b.Name,
			parent: parent,
			origin: normalizeScale(b.Transform),
			length: b.Length,
		}
		index[b.Name] = pos
	}
	return bones, index
}

func (c *armatureCompiler) slots(defs []SlotDef, boneIndex map[string]int) ([]slotData, map[string]int) {
	slots := make([]slotData, 0, len(defs))
	index := make(map[string]int, len(defs))
	for i, s := range defs {
		if s.Name == "" {
			c.fail("slot %d has no name", i)
			continue
		}
		if _, dup := index[s.Name]; dup {
			c.fail("duplicate slot %q", s.Name)
			continue
		}
		bone, ok := boneIndex[s.Bone]
		if !ok {
			c.fail("slot %q is bound to unknown bone %q", s.Name, s.Bone)
			continue
		}
		if s.DisplayIndex < -1 || s.DisplayIndex >= len(s.Displays) {
			c.fail("slot %q default display index %d out of range [-1, %d)", s.Name, s.DisplayIndex, len(s.Displays))
		}
		sd := slotData{
			name:         s.Name,
			bone:         bone,
			displayIndex: s.DisplayIndex,
			zOrder:       s.ZOrder,
			color:        normalizeColor(s.Color),
			blendMode:    s.BlendMode,
		}
		for j, d := range s.Displays {
			sd.displays = append(sd.displays, c.display(s.Name, j, d, boneIndex))
		}
		index[s.Name] = len(slots)
		slots = append(slots, sd)
	}
	return slots, index
}

func (c *armatureCompiler) display(slot string, i int, d DisplayDef, boneIndex map[string]int) displayData {
	t := normalizeScale(d.Transform)
	dd := displayData{
		name:      d.Name,
		typ:       d.Type,
		transform: t,
		matrix:    t.Matrix(),
		pivot:     d.Pivot,
		region:    d.Region,
		armature:  d.Armature,
		animation: d.Animation,
	}
	switch d.Type {
	case DisplayImage:
	case DisplayMesh:
		if d.Mesh == nil {
			c.fail("slot %q display %d: mesh display without mesh", slot, i)
			break
		}
		dd.mesh = c.mesh(slot, i, d.Mesh, boneIndex)
	case DisplayBoundingBox:
		if d.BoundingBox == nil {
			c.fail("slot %q display %d: bounding box display without geometry", slot, i)
			break
		}
		bb := *d.BoundingBox
		bb.Vertices = append([]Vec2(nil), bb.Vertices...)
		if bb.Type == BoundingBoxPolygon && len(bb.Vertices) < 3 {
			c.fail("slot %q display %d: polygon needs at least 3 vertices, has %d", slot, i, len(bb.Vertices))
		}
		dd.boundingBox = &bb
	case DisplayArmature:
		if d.Armature == "" {
			c.fail("slot %q display %d: armature display without armature name", slot, i)
		}
	default:
		c.fail("slot %q display %d: unknown display type %d", slot, i, d.Type)
	}
	return dd
}

func (c *armatureCompiler) mesh(slot string, i int, m *MeshDef, boneIndex map[string]int) *meshData {
	md := &meshData{
		vertices: append([]Vec2(nil), m.Vertices...),
		uvs:      append([]Vec2(nil), m.UVs...),
		indices:  append([]uint16(nil), m.Indices...),
	}
	if len(m.UVs) != 0 && len(m.UVs) != len(m.Vertices) {
		c.fail("slot %q display %d: %d uvs for %d vertices", slot, i, len(m.UVs), len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		c.fail("slot %q display %d: index count %d is not a multiple of 3", slot, i, len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			c.fail("slot %q display %d: index %d out of range", slot, i, idx)
			break
		}
	}
	if len(m.Weights) == 0 {
		return md
	}
	if len(m.Weights) != len(m.Vertices) {
		c.fail("slot %q display %d: %d weight sets for %d vertices", slot, i, len(m.Weights), len(m.Vertices))
		return md
	}
	md.weights = make([][]boneWeight, len(m.Weights))
	for v, ws := range m.Weights {
		for _, w := range ws {
			b, ok := boneIndex[w.Bone]
			if !ok {
				c.fail("slot %q display %d: vertex %d weighted to unknown bone %q", slot, i, v, w.Bone)
				continue
			}
			md.weights[v] = append(md.weights[v], boneWeight{bone: b, weight: w.Weight, offset: w.Offset})
		}
	}
	return md
}

func (c *armatureCompiler) animations(defs []AnimationDef, boneIndex, slotIndex map[string]int, slots []slotData) (map[string]*animationData, []string) {
	anims := make(map[string]*animationData, len(defs))
	var order []string
	for _, a := range defs {
		if a.Name == "" {
			c.fail("animation has no name")
			continue
		}
		if _, dup := anims[a.Name]; dup {
			c.fail("duplicate animation %q", a.Name)
			continue
		}
		if a.Duration < 0 {
			c.fail("animation %q has negative duration %v", a.Name, a.Duration)
			continue
		}
		if a.PlayTimes < 0 {
			c.fail("animation %q has negative play times %d", a.Name, a.PlayTimes)
		}
		ad := &animationData{
			name:       a.Name,
			duration:   a.Duration,
			playTimes:  a.PlayTimes,
			fadeInTime: a.FadeInTime,
		}
		for _, tl := range a.BoneTimelines {
			b, ok := boneIndex[tl.Bone]
			if !ok {
				c.fail("animation %q: timeline for unknown bone %q", a.Name, tl.Bone)
				continue
			}
			frames := make([]BoneFrame, len(tl.Frames))
			for i, f := range tl.Frames {
				f.Transform = normalizeScale(f.Transform)
				frames[i] = f
			}
			if c.checkFrameTimes(a, "bone "+tl.Bone, len(frames), func(i int) float64 { return frames[i].Time }) {
				ad.bones = append(ad.bones, boneTimeline{bone: b, frames: frames})
			}
		}
		for _, tl := range a.SlotTimelines {
			s, ok := slotIndex[tl.Slot]
			if !ok {
				c.fail("animation %q: timeline for unknown slot %q", a.Name, tl.Slot)
				continue
			}
			frames := make([]SlotFrame, len(tl.Frames))
			for i, f := range tl.Frames {
				f.Color = normalizeColor(f.Color)
				if f.DisplayIndex < -1 || f.DisplayIndex >= len(slots[s].displays) {
					c.fail("animation %q: slot %q frame %d display index %d out of range", a.Name, tl.Slot, i, f.DisplayIndex)
				}
				frames[i] = f
			}
			if c.checkFrameTimes(a, "slot "+tl.Slot, len(frames), func(i int) float64 { return frames[i].Time }) {
				ad.slots = append(ad.slots, slotTimeline{slot: s, frames: frames})
			}
		}
		for _, e := range a.Events {
			if e.Time < 0 || e.Time > a.Duration {
				c.fail("animation %q: event %q at %v outside [0, %v]", a.Name, e.Name, e.Time, a.Duration)
				continue
			}
			ad.events = append(ad.events, frameEvent{time: e.Time, name: e.Name, bone: e.Bone, data: e.Data})
		}
		sort.SliceStable(ad.events, func(i, j int) bool { return ad.events[i].time < ad.events[j].time })
		anims[a.Name] = ad
		order = append(order, a.Name)
	}
	return anims, order
}

// checkFrameTimes verifies a timeline has frames in ascending time order
// within [0, duration].
func (c *armatureCompiler) checkFrameTimes(a AnimationDef, what string, n int, at func(int) float64) bool {
	if n == 0 {
		c.fail("animation %q: %s timeline has no frames", a.Name, what)
		return false
	}
	ok := true
	for i := 0; i < n; i++ {
		t := at(i)
		if t < 0 || t > a.Duration {
			c.fail("animation %q: %s frame %d at %v outside [0, %v]", a.Name, what, i, t, a.Duration)
			ok = false
		}
		if i > 0 && t < at(i-1) {
			c.fail("animation %q: %s frame %d is out of order", a.Name, what, i)
			ok = false
		}
	}
	return ok
}

// normalizeScale reads zero scales as 1 so zero-valued definitions mean
// "no change".
func normalizeScale(t Transform) Transform {
	if t.ScaleX == 0 {
		t.ScaleX = 1
	}
	if t.ScaleY == 0 {
		t.ScaleY = 1
	}
	return t
}

// normalizeColor reads the zero ColorTransform as identity.
func normalizeColor(ct ColorTransform) ColorTransform {
	return ct.Normalized()
}
