package bones

// SkeletonDef is the in-memory skeleton description produced by an asset
// loader. It is compiled into immutable ArmatureData by DataCache.Add.
type SkeletonDef struct {
	Name      string
	FrameRate int
	Armatures []ArmatureDef
}

// ArmatureDef describes one armature: its bone tree, slots and animations.
type ArmatureDef struct {
	Name             string
	FrameRate        int // 0 inherits SkeletonDef.FrameRate
	Bones            []BoneDef
	Slots            []SlotDef
	Animations       []AnimationDef
	DefaultAnimation string
}

// BoneDef describes a bone in bind pose. Parent is empty for root bones.
type BoneDef struct {
	Name      string
	Parent    string
	Transform Transform
	Length    float64
}

// SlotDef describes an attachment point on a bone. Slots are drawn in
// ascending ZOrder; ties keep definition order.
type SlotDef struct {
	Name         string
	Bone         string
	DisplayIndex int // -1 shows nothing
	ZOrder       int
	Color        ColorTransform // zero value means identity
	BlendMode    BlendMode
	Displays     []DisplayDef
}

// DisplayDef is one selectable visual of a slot.
type DisplayDef struct {
	Name      string
	Type      DisplayType
	Transform Transform // offset relative to the slot's bone; zero value means identity
	Pivot     Vec2      // image pivot in [0, 1] region units

	Region      string          // DisplayImage and DisplayMesh: texture region name
	Mesh        *MeshDef        // DisplayMesh
	BoundingBox *BoundingBoxDef // DisplayBoundingBox
	Armature    string          // DisplayArmature: child armature name
	Animation   string          // DisplayArmature: animation the child starts with
}

// MeshDef describes a textured triangle mesh in slot space. When Weights is
// non-empty the mesh is skinned: each vertex is the weighted sum of bone
// world transforms applied to per-bone offsets, and Vertices is the bind pose.
type MeshDef struct {
	Vertices []Vec2
	UVs      []Vec2
	Indices  []uint16
	Weights  [][]VertexWeight // one entry per vertex when skinned
}

// VertexWeight binds a skinned vertex to one bone.
type VertexWeight struct {
	Bone   string
	Weight float64
	Offset Vec2 // vertex position in the bone's space
}

// BoundingBoxDef describes hit-test geometry in slot space.
type BoundingBoxDef struct {
	Type     BoundingBoxType
	Width    float64
	Height   float64
	Vertices []Vec2 // BoundingBoxPolygon only
}

// AnimationDef describes a named animation. Bone keyframes are offsets added
// to the bind pose; slot keyframes set display state directly.
type AnimationDef struct {
	Name          string
	Duration      float64 // seconds
	PlayTimes     int     // default loop count, 0 = infinite
	FadeInTime    float64 // default cross-fade used by FadeIn when fadeTime < 0
	BoneTimelines []BoneTimelineDef
	SlotTimelines []SlotTimelineDef
	Events        []FrameEventDef
}

// BoneTimelineDef animates one bone.
type BoneTimelineDef struct {
	Bone   string
	Frames []BoneFrame
}

// BoneFrame is a keyframe of a bone timeline. Zero ScaleX/ScaleY in
// Transform are read as 1.
type BoneFrame struct {
	Time      float64
	Transform Transform
	Ease      Easing
}

// SlotTimelineDef animates one slot.
type SlotTimelineDef struct {
	Slot   string
	Frames []SlotFrame
}

// SlotFrame is a keyframe of a slot timeline. Display index and z-order are
// stepped; Color interpolates toward the next frame using Ease.
type SlotFrame struct {
	Time         float64
	DisplayIndex int
	ZOrder       int
	Color        ColorTransform // zero value means identity
	Ease         Easing
}

// FrameEventDef fires an EventFrame when playback crosses Time.
type FrameEventDef struct {
	Time float64
	Name string
	Bone string // optional
	Data string // optional payload
}
