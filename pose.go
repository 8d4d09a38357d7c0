package bones

// Pose is a snapshot of an armature's evaluated state. It holds copies and
// stays valid after the armature moves on or is disposed.
type Pose struct {
	Armature  string     `yaml:"armature"`
	Animation string     `yaml:"animation,omitempty"`
	Time      float64    `yaml:"time"`
	Bones     []BonePose `yaml:"bones"`
	Slots     []SlotPose `yaml:"slots"` // draw order
}

// BonePose is one bone's evaluated state.
type BonePose struct {
	Name   string    `yaml:"name"`
	Parent string    `yaml:"parent,omitempty"`
	Length float64   `yaml:"length,omitempty"`
	Local  Transform `yaml:"local"`
	World  Matrix    `yaml:"world"`
}

// SlotPose is one slot's evaluated state.
type SlotPose struct {
	Name         string         `yaml:"name"`
	Bone         string         `yaml:"bone"`
	DisplayIndex int            `yaml:"displayIndex"`
	Display      string         `yaml:"display,omitempty"`
	Type         DisplayType    `yaml:"type"`
	Region       string         `yaml:"region,omitempty"`
	Pivot        Vec2           `yaml:"pivot"`
	ZOrder       int            `yaml:"zOrder"`
	BlendMode    BlendMode      `yaml:"blendMode"`
	World        Matrix         `yaml:"world"`
	Color        ColorTransform `yaml:"color"`

	// Mesh displays.
	Vertices []Vec2   `yaml:"vertices,omitempty"`
	UVs      []Vec2   `yaml:"uvs,omitempty"`
	Indices  []uint16 `yaml:"indices,omitempty"`

	// Bounding box displays, world-space outline.
	BoundingBox []Vec2 `yaml:"boundingBox,omitempty"`

	// Armature displays.
	Child *Pose `yaml:"child,omitempty"`
}

// CurrentPose returns a snapshot of the pose computed by the last
// AdvanceTime. Hidden slots (display index -1) are omitted.
func (a *Armature) CurrentPose() Pose {
	p := Pose{Armature: a.data.Name}
	if st := a.animation.State(); st != nil {
		p.Animation = st.Name()
		p.Time = st.Time()
	}
	p.Bones = make([]BonePose, len(a.bones))
	for i := range a.bones {
		b := &a.bones[i]
		bp := BonePose{
			Name:   b.data.name,
			Length: b.data.length,
			Local:  b.local,
			World:  b.world,
		}
		if b.data.parent >= 0 {
			bp.Parent = a.bones[b.data.parent].data.name
		}
		p.Bones[i] = bp
	}
	for _, s := range a.DrawOrder() {
		d := s.display()
		if d == nil {
			continue
		}
		sp := SlotPose{
			Name:         s.data.name,
			Bone:         a.bones[s.data.bone].data.name,
			DisplayIndex: s.displayIndex,
			Display:      d.name,
			Type:         d.typ,
			Region:       d.region,
			Pivot:        d.pivot,
			ZOrder:       s.zOrder,
			BlendMode:    s.data.blendMode,
			World:        s.world,
			Color:        s.globalColor,
		}
		switch d.typ {
		case DisplayMesh:
			sp.Vertices = append([]Vec2(nil), s.MeshVertices()...)
			sp.UVs = d.mesh.uvs
			sp.Indices = d.mesh.indices
		case DisplayBoundingBox:
			sp.BoundingBox = append([]Vec2(nil), s.BoundingBoxVertices()...)
		case DisplayArmature:
			if c := s.ChildArmature(); c != nil && !c.IsDisposed() {
				cp := c.CurrentPose()
				sp.Child = &cp
			}
		}
		p.Slots = append(p.Slots, sp)
	}
	return p
}

// Bounds returns the world-space bounds of every mesh, bounding box and
// bone origin in the pose, including child poses.
func (p *Pose) Bounds() Rect {
	var pts []Vec2
	p.collectPoints(&pts)
	return boundsOf(pts)
}

func (p *Pose) collectPoints(pts *[]Vec2) {
	for _, b := range p.Bones {
		*pts = append(*pts, Vec2{X: b.World.Tx, Y: b.World.Ty})
		if b.Length != 0 {
			x, y := b.World.TransformPoint(b.Length, 0)
			*pts = append(*pts, Vec2{X: x, Y: y})
		}
	}
	for i := range p.Slots {
		s := &p.Slots[i]
		*pts = append(*pts, s.Vertices...)
		*pts = append(*pts, s.BoundingBox...)
		if s.Child != nil {
			s.Child.collectPoints(pts)
		}
	}
}
