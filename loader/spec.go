// Package loader reads YAML skeleton descriptors into bones.SkeletonDef
// values and keeps a bones.DataCache in sync with a directory of them.
//
// Angles in descriptors are in degrees; points are [x, y] pairs and colors
// are [r, g, b, a] quadruples in [0, 1].
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/bones"
)

// SkeletonSpec is the YAML form of a skeleton.
type SkeletonSpec struct {
	Name      string         `yaml:"name"`
	FrameRate int            `yaml:"frame_rate"`
	Armatures []ArmatureSpec `yaml:"armatures"`
}

type ArmatureSpec struct {
	Name             string          `yaml:"name"`
	FrameRate        int             `yaml:"frame_rate"`
	Bones            []BoneSpec      `yaml:"bones"`
	Slots            []SlotSpec      `yaml:"slots"`
	Animations       []AnimationSpec `yaml:"animations"`
	DefaultAnimation string          `yaml:"default_animation"`
}

type TransformSpec struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation float64 `yaml:"rotation"` // degrees
	Skew     float64 `yaml:"skew"`     // degrees
	ScaleX   float64 `yaml:"scale_x"`
	ScaleY   float64 `yaml:"scale_y"`
}

type BoneSpec struct {
	Name      string        `yaml:"name"`
	Parent    string        `yaml:"parent"`
	Transform TransformSpec `yaml:"transform"`
	Length    float64       `yaml:"length"`
}

type ColorSpec struct {
	Multiply *[4]float64 `yaml:"multiply"`
	Offset   *[4]float64 `yaml:"offset"`
}

type SlotSpec struct {
	Name         string        `yaml:"name"`
	Bone         string        `yaml:"bone"`
	DisplayIndex int           `yaml:"display_index"`
	ZOrder       int           `yaml:"z_order"`
	Color        ColorSpec     `yaml:"color"`
	BlendMode    string        `yaml:"blend_mode"`
	Displays     []DisplaySpec `yaml:"displays"`
}

type DisplaySpec struct {
	Name        string           `yaml:"name"`
	Type        string           `yaml:"type"`
	Transform   TransformSpec    `yaml:"transform"`
	Pivot       [2]float64       `yaml:"pivot"`
	Region      string           `yaml:"region"`
	Mesh        *MeshSpec        `yaml:"mesh"`
	BoundingBox *BoundingBoxSpec `yaml:"bounding_box"`
	Armature    string           `yaml:"armature"`
	Animation   string           `yaml:"animation"`
}

type MeshSpec struct {
	Vertices [][2]float64   `yaml:"vertices"`
	UVs      [][2]float64   `yaml:"uvs"`
	Indices  []uint16       `yaml:"indices"`
	Weights  [][]WeightSpec `yaml:"weights"`
}

type WeightSpec struct {
	Bone   string     `yaml:"bone"`
	Weight float64    `yaml:"weight"`
	Offset [2]float64 `yaml:"offset"`
}

type BoundingBoxSpec struct {
	Type     string       `yaml:"type"`
	Width    float64      `yaml:"width"`
	Height   float64      `yaml:"height"`
	Vertices [][2]float64 `yaml:"vertices"`
}

type AnimationSpec struct {
	Name       string          `yaml:"name"`
	Duration   float64         `yaml:"duration"`
	PlayTimes  int             `yaml:"play_times"`
	FadeInTime float64         `yaml:"fade_in_time"`
	Bones      []BoneTrackSpec `yaml:"bones"`
	Slots      []SlotTrackSpec `yaml:"slots"`
	Events     []EventSpec     `yaml:"events"`
}

type BoneTrackSpec struct {
	Bone   string          `yaml:"bone"`
	Frames []BoneFrameSpec `yaml:"frames"`
}

type BoneFrameSpec struct {
	Time          float64 `yaml:"time"`
	TransformSpec `yaml:",inline"`
	Ease          string `yaml:"ease"`
}

type SlotTrackSpec struct {
	Slot   string          `yaml:"slot"`
	Frames []SlotFrameSpec `yaml:"frames"`
}

type SlotFrameSpec struct {
	Time         float64   `yaml:"time"`
	DisplayIndex int       `yaml:"display_index"`
	ZOrder       int       `yaml:"z_order"`
	Color        ColorSpec `yaml:"color"`
	Ease         string    `yaml:"ease"`
}

type EventSpec struct {
	Time float64 `yaml:"time"`
	Name string  `yaml:"name"`
	Bone string  `yaml:"bone"`
	Data string  `yaml:"data"`
}

// Parse decodes a YAML descriptor. Unknown enum names are all reported in one
// joined error.
func Parse(data []byte) (bones.SkeletonDef, error) {
	var spec SkeletonSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return bones.SkeletonDef{}, fmt.Errorf("loader: unmarshal: %w", err)
	}
	return spec.Def()
}

// ParseFile reads and decodes the descriptor at path. A skeleton without a
// name is named after the file.
func ParseFile(path string) (bones.SkeletonDef, uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bones.SkeletonDef{}, 0, fmt.Errorf("loader: read %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return bones.SkeletonDef{}, 0, fmt.Errorf("loader: %s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = SkeletonName(path)
	}
	return def, Fingerprint(data), nil
}

// Fingerprint hashes descriptor bytes so unchanged files can be skipped.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// SkeletonName derives a skeleton name from a descriptor path.
func SkeletonName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDescriptor reports whether path has a YAML extension.
func IsDescriptor(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Def converts the descriptor into the runtime description.
func (s SkeletonSpec) Def() (bones.SkeletonDef, error) {
	c := &converter{}
	def := bones.SkeletonDef{Name: s.Name, FrameRate: s.FrameRate}
	for _, a := range s.Armatures {
		def.Armatures = append(def.Armatures, c.armature(a))
	}
	if len(c.errs) > 0 {
		return bones.SkeletonDef{}, errors.Join(c.errs...)
	}
	return def, nil
}

type converter struct {
	errs []error
}

func (c *converter) fail(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *converter) armature(a ArmatureSpec) bones.ArmatureDef {
	def := bones.ArmatureDef{
		Name:             a.Name,
		FrameRate:        a.FrameRate,
		DefaultAnimation: a.DefaultAnimation,
	}
	for _, b := range a.Bones {
		def.Bones = append(def.Bones, bones.BoneDef{
			Name:      b.Name,
			Parent:    b.Parent,
			Transform: b.Transform.transform(),
			Length:    b.Length,
		})
	}
	for _, s := range a.Slots {
		def.Slots = append(def.Slots, c.slot(a.Name, s))
	}
	for _, an := range a.Animations {
		def.Animations = append(def.Animations, c.animation(a.Name, an))
	}
	return def
}

func (c *converter) slot(arm string, s SlotSpec) bones.SlotDef {
	blend, ok := blendModes[strings.ToLower(s.BlendMode)]
	if !ok {
		c.fail("armature %q slot %q: unknown blend mode %q", arm, s.Name, s.BlendMode)
	}
	def := bones.SlotDef{
		Name:         s.Name,
		Bone:         s.Bone,
		DisplayIndex: s.DisplayIndex,
		ZOrder:       s.ZOrder,
		Color:        s.Color.colorTransform(),
		BlendMode:    blend,
	}
	for _, d := range s.Displays {
		def.Displays = append(def.Displays, c.display(arm, s.Name, d))
	}
	return def
}

func (c *converter) display(arm, slot string, d DisplaySpec) bones.DisplayDef {
	typ, ok := displayTypes[strings.ToLower(d.Type)]
	if !ok {
		c.fail("armature %q slot %q display %q: unknown type %q", arm, slot, d.Name, d.Type)
	}
	def := bones.DisplayDef{
		Name:      d.Name,
		Type:      typ,
		Transform: d.Transform.transform(),
		Pivot:     vec(d.Pivot),
		Region:    d.Region,
		Armature:  d.Armature,
		Animation: d.Animation,
	}
	if def.Region == "" && (typ == bones.DisplayImage || typ == bones.DisplayMesh) {
		def.Region = d.Name
	}
	if m := d.Mesh; m != nil {
		md := &bones.MeshDef{
			Vertices: vecs(m.Vertices),
			UVs:      vecs(m.UVs),
			Indices:  m.Indices,
		}
		for _, ws := range m.Weights {
			vw := make([]bones.VertexWeight, len(ws))
			for i, w := range ws {
				vw[i] = bones.VertexWeight{Bone: w.Bone, Weight: w.Weight, Offset: vec(w.Offset)}
			}
			md.Weights = append(md.Weights, vw)
		}
		def.Mesh = md
	}
	if bb := d.BoundingBox; bb != nil {
		bt, ok := boundingBoxTypes[strings.ToLower(bb.Type)]
		if !ok {
			c.fail("armature %q slot %q display %q: unknown bounding box type %q", arm, slot, d.Name, bb.Type)
		}
		def.BoundingBox = &bones.BoundingBoxDef{
			Type:     bt,
			Width:    bb.Width,
			Height:   bb.Height,
			Vertices: vecs(bb.Vertices),
		}
	}
	return def
}

func (c *converter) animation(arm string, a AnimationSpec) bones.AnimationDef {
	def := bones.AnimationDef{
		Name:       a.Name,
		Duration:   a.Duration,
		PlayTimes:  a.PlayTimes,
		FadeInTime: a.FadeInTime,
	}
	for _, tr := range a.Bones {
		tl := bones.BoneTimelineDef{Bone: tr.Bone}
		for _, f := range tr.Frames {
			tl.Frames = append(tl.Frames, bones.BoneFrame{
				Time:      f.Time,
				Transform: f.TransformSpec.transform(),
				Ease:      c.ease(arm, a.Name, f.Ease),
			})
		}
		def.BoneTimelines = append(def.BoneTimelines, tl)
	}
	for _, tr := range a.Slots {
		tl := bones.SlotTimelineDef{Slot: tr.Slot}
		for _, f := range tr.Frames {
			tl.Frames = append(tl.Frames, bones.SlotFrame{
				Time:         f.Time,
				DisplayIndex: f.DisplayIndex,
				ZOrder:       f.ZOrder,
				Color:        f.Color.colorTransform(),
				Ease:         c.ease(arm, a.Name, f.Ease),
			})
		}
		def.SlotTimelines = append(def.SlotTimelines, tl)
	}
	for _, e := range a.Events {
		def.Events = append(def.Events, bones.FrameEventDef{Time: e.Time, Name: e.Name, Bone: e.Bone, Data: e.Data})
	}
	return def
}

func (c *converter) ease(arm, anim, name string) bones.Easing {
	e, ok := bones.ParseEasing(name)
	if !ok {
		c.fail("armature %q animation %q: unknown easing %q", arm, anim, name)
	}
	return e
}

func (t TransformSpec) transform() bones.Transform {
	return bones.Transform{
		X:        t.X,
		Y:        t.Y,
		Rotation: bones.DegToRad(t.Rotation),
		Skew:     bones.DegToRad(t.Skew),
		ScaleX:   t.ScaleX,
		ScaleY:   t.ScaleY,
	}
}

func (cs ColorSpec) colorTransform() bones.ColorTransform {
	if cs.Multiply == nil && cs.Offset == nil {
		return bones.ColorTransform{}
	}
	ct := bones.IdentityColorTransform
	if m := cs.Multiply; m != nil {
		ct.Multiplier = bones.Color{R: m[0], G: m[1], B: m[2], A: m[3]}
	}
	if o := cs.Offset; o != nil {
		ct.Offset = bones.Color{R: o[0], G: o[1], B: o[2], A: o[3]}
	}
	return ct
}

func vec(p [2]float64) bones.Vec2 { return bones.Vec2{X: p[0], Y: p[1]} }

func vecs(ps [][2]float64) []bones.Vec2 {
	if len(ps) == 0 {
		return nil
	}
	out := make([]bones.Vec2, len(ps))
	for i, p := range ps {
		out[i] = vec(p)
	}
	return out
}

var displayTypes = map[string]bones.DisplayType{
	"":             bones.DisplayImage,
	"image":        bones.DisplayImage,
	"mesh":         bones.DisplayMesh,
	"boundingbox":  bones.DisplayBoundingBox,
	"bounding_box": bones.DisplayBoundingBox,
	"armature":     bones.DisplayArmature,
}

var boundingBoxTypes = map[string]bones.BoundingBoxType{
	"":          bones.BoundingBoxRectangle,
	"rectangle": bones.BoundingBoxRectangle,
	"ellipse":   bones.BoundingBoxEllipse,
	"polygon":   bones.BoundingBoxPolygon,
}

var blendModes = map[string]bones.BlendMode{
	"":         bones.BlendNormal,
	"normal":   bones.BlendNormal,
	"add":      bones.BlendAdd,
	"multiply": bones.BlendMultiply,
	"screen":   bones.BlendScreen,
	"erase":    bones.BlendErase,
}
