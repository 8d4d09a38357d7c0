package bones

// Bone is a runtime node of an armature's skeleton. Bones are stored in a
// flat slice owned by the armature, parents before children, and refer to
// each other by index.
type Bone struct {
	armature *Armature
	data     *boneData
	index    int

	animPose Transform // offset produced by the animation player
	offset   Transform // offset set by the host
	local    Transform
	world    Matrix
	dirty    bool
	changed  bool // recomputed during the current update
}

func (b *Bone) init(a *Armature, data *boneData, index int) {
	b.armature = a
	b.data = data
	b.index = index
	b.animPose = IdentityTransform
	b.offset = IdentityTransform
	b.local = data.origin
	b.world = IdentityMatrix
	b.dirty = true
}

// Name returns the bone name.
func (b *Bone) Name() string { return b.data.name }

// Index returns the bone's position in the armature's bone slice.
func (b *Bone) Index() int { return b.index }

// Length returns the bone length from the skeleton description.
func (b *Bone) Length() float64 { return b.data.length }

// Parent returns the parent bone, or nil for a root bone or once the
// armature has been disposed.
func (b *Bone) Parent() *Bone {
	if b.data.parent < 0 || b.armature.bones == nil {
		return nil
	}
	return &b.armature.bones[b.data.parent]
}

// ParentIndex returns the parent's index, or -1 for a root bone.
func (b *Bone) ParentIndex() int { return b.data.parent }

// Children returns the indices of the bone's direct children. The returned
// slice MUST NOT be mutated.
func (b *Bone) Children() []int { return b.data.children }

// Origin returns the bind-pose local transform.
func (b *Bone) Origin() Transform { return b.data.origin }

// Offset returns the host-set offset layered on top of the animation.
func (b *Bone) Offset() Transform { return b.offset }

// SetOffset sets an offset layered on top of the bind pose and animation,
// and marks the bone and its descendants dirty. Zero scales are read as 1.
func (b *Bone) SetOffset(t Transform) {
	t = normalizeScale(t)
	if t == b.offset {
		return
	}
	b.offset = t
	b.armature.markBoneDirty(b.index)
}

// SetRotation sets the offset rotation (radians) and marks the subtree dirty.
func (b *Bone) SetRotation(r float64) {
	t := b.offset
	t.Rotation = r
	b.SetOffset(t)
}

// SetPosition sets the offset translation and marks the subtree dirty.
func (b *Bone) SetPosition(x, y float64) {
	t := b.offset
	t.X, t.Y = x, y
	b.SetOffset(t)
}

// AnimationPose returns the offset last applied by the animation player.
func (b *Bone) AnimationPose() Transform { return b.animPose }

// Local returns the effective local transform as of the last update.
func (b *Bone) Local() Transform { return b.local }

// WorldMatrix returns the bone's world matrix as of the last update.
func (b *Bone) WorldMatrix() Matrix { return b.world }

// WorldPosition returns the bone origin in armature space.
func (b *Bone) WorldPosition() (float64, float64) {
	return b.world.Tx, b.world.Ty
}

// TipPosition returns the end of the bone (origin + Length along its
// local X axis) in armature space.
func (b *Bone) TipPosition() (float64, float64) {
	return b.world.TransformPoint(b.data.length, 0)
}

// LocalToWorld converts a point in bone space to armature space.
func (b *Bone) LocalToWorld(x, y float64) (float64, float64) {
	return b.world.TransformPoint(x, y)
}

// WorldToLocal converts an armature-space point to bone space. A degenerate
// world matrix maps through the identity.
func (b *Bone) WorldToLocal(x, y float64) (float64, float64) {
	inv, _ := b.world.Invert()
	return inv.TransformPoint(x, y)
}

// IsDirty reports whether the bone will be recomputed on the next update.
func (b *Bone) IsDirty() bool { return b.dirty }

func (b *Bone) setAnimationPose(t Transform) {
	if t == b.animPose {
		return
	}
	b.animPose = t
	b.armature.markBoneDirty(b.index)
}

// updateTransform recomputes the bone's world matrix if it is dirty. It
// reports whether anything was recomputed. Parents are always updated
// before their children, so the parent's world matrix is current.
func (b *Bone) updateTransform(root Matrix) bool {
	b.changed = false
	if !b.dirty {
		return false
	}
	b.local = b.data.origin.Add(b.animPose).Add(b.offset)
	parent := root
	if b.data.parent >= 0 {
		parent = b.armature.bones[b.data.parent].world
	}
	b.world = parent.Multiply(b.local.Matrix())
	b.dirty = false
	b.changed = true
	return true
}
