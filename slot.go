package bones

import (
	"fmt"
)

// Slot attaches displays to a bone. At most one display is active at a time;
// the slot's world matrix is its bone's world matrix composed with the
// active display's transform.
type Slot struct {
	armature *Armature
	data     *slotData
	index    int

	displayIndex int
	zOrder       int
	color        ColorTransform // own color, animated or host-set
	globalColor  ColorTransform
	world        Matrix

	binding  DisplayBinding
	children []*Armature // per display; non-nil only for armature displays

	// Caches reset on display switch and transform change.
	meshVerts  []Vec2
	meshValid  bool
	bbVerts    []Vec2
	bbValid    bool
	inverse    Matrix
	inverseErr error
	invValid   bool

	animated       bool
	displayDirty   bool
	transformDirty bool
	colorDirty     bool
	zOrderDirty    bool
}

func (s *Slot) init(a *Armature, data *slotData, index int) {
	s.armature = a
	s.data = data
	s.index = index
	s.displayIndex = data.displayIndex
	s.zOrder = data.zOrder
	s.color = data.color
	s.globalColor = data.color
	s.world = IdentityMatrix
	s.children = make([]*Armature, len(data.displays))
	s.displayDirty = true
	s.transformDirty = true
	s.colorDirty = true
}

// Name returns the slot name.
func (s *Slot) Name() string { return s.data.name }

// Index returns the slot's position in the armature's slot slice.
func (s *Slot) Index() int { return s.index }

// Armature returns the armature owning the slot.
func (s *Slot) Armature() *Armature { return s.armature }

// Bone returns the bone the slot is attached to, or nil once the armature
// has been disposed.
func (s *Slot) Bone() *Bone {
	if s.armature.bones == nil {
		return nil
	}
	return &s.armature.bones[s.data.bone]
}

// BlendMode returns the slot's blend mode.
func (s *Slot) BlendMode() BlendMode { return s.data.blendMode }

// Binding returns the display binding created for the slot, or nil.
func (s *Slot) Binding() DisplayBinding { return s.binding }

// WorldMatrix returns the slot's world matrix as of the last update.
func (s *Slot) WorldMatrix() Matrix { return s.world }

// Color returns the slot's own color transform.
func (s *Slot) Color() ColorTransform { return s.color }

// GlobalColor returns the slot color combined with the armature's and
// every ancestor slot's color.
func (s *Slot) GlobalColor() ColorTransform { return s.globalColor }

// ZOrder returns the slot's current draw order key.
func (s *Slot) ZOrder() int { return s.zOrder }

// DisplayIndex returns the active display, or -1 when nothing is shown.
func (s *Slot) DisplayIndex() int { return s.displayIndex }

// DisplayCount returns the number of displays the slot can switch between.
func (s *Slot) DisplayCount() int { return len(s.data.displays) }

func (s *Slot) display() *displayData {
	if s.displayIndex < 0 || s.displayIndex >= len(s.data.displays) {
		return nil
	}
	return &s.data.displays[s.displayIndex]
}

// HasDisplay reports whether a display is active.
func (s *Slot) HasDisplay() bool { return s.display() != nil }

// DisplayType returns the active display's type. ok is false when nothing
// is shown.
func (s *Slot) DisplayType() (t DisplayType, ok bool) {
	d := s.display()
	if d == nil {
		return 0, false
	}
	return d.typ, true
}

// DisplayName returns the active display's name, or "".
func (s *Slot) DisplayName() string {
	if d := s.display(); d != nil {
		return d.name
	}
	return ""
}

// Region returns the texture region of the active image or mesh display.
func (s *Slot) Region() string {
	if d := s.display(); d != nil {
		return d.region
	}
	return ""
}

// Pivot returns the active display's pivot in region units.
func (s *Slot) Pivot() Vec2 {
	if d := s.display(); d != nil {
		return d.pivot
	}
	return Vec2{}
}

// DisplayTransform returns the active display's transform relative to the
// bone.
func (s *Slot) DisplayTransform() Transform {
	if d := s.display(); d != nil {
		return d.transform
	}
	return IdentityTransform
}

// ChildArmature returns the armature hosted by the active display, or nil.
func (s *Slot) ChildArmature() *Armature {
	if s.displayIndex < 0 || s.displayIndex >= len(s.children) {
		return nil
	}
	return s.children[s.displayIndex]
}

// SetDisplayIndex switches the active display; -1 hides the slot. Animated
// slots are overridden again on the next update.
func (s *Slot) SetDisplayIndex(i int) error {
	if i < -1 || i >= len(s.data.displays) {
		return fmt.Errorf("bones: slot %q display index %d out of range [-1, %d)", s.data.name, i, len(s.data.displays))
	}
	s.setDisplayIndex(i)
	return nil
}

// SetZOrder changes the slot's draw order key.
func (s *Slot) SetZOrder(z int) { s.setZOrder(z) }

// SetColorTransform sets the slot's own color. Zero value means identity.
func (s *Slot) SetColorTransform(ct ColorTransform) { s.setColor(normalizeColor(ct)) }

// SetChildArmature replaces the armature hosted by the active display. The
// active display must be an armature display. The replaced armature is
// disposed unless another display of this armature still hosts it; the new
// one is detached from any previous slot and positioned by this slot.
func (s *Slot) SetChildArmature(child *Armature) error {
	d := s.display()
	if d == nil || d.typ != DisplayArmature {
		return fmt.Errorf("bones: slot %q has no active armature display", s.data.name)
	}
	if child != nil && (child.disposed || child.disposeRequested) {
		return fmt.Errorf("%w: child armature %q", ErrUseAfterDispose, child.Name())
	}
	if child != nil && child.isAncestorOf(s.armature) {
		return fmt.Errorf("%w: armature %q cannot host itself", ErrInvalidSkeleton, child.Name())
	}
	old := s.children[s.displayIndex]
	if old == child {
		return nil
	}
	s.children[s.displayIndex] = child
	if child != nil {
		if prev := child.parentSlot; prev != nil && prev != s {
			prev.detachChild(child)
		}
		child.attachTo(s)
	}
	if old != nil && !s.armature.hostsChild(old) {
		old.parentSlot = nil
		old.Dispose()
	}
	s.transformDirty = true
	s.colorDirty = true
	return nil
}

// detachChild forgets child in every display of the slot.
func (s *Slot) detachChild(child *Armature) {
	for i, c := range s.children {
		if c == child {
			s.children[i] = nil
		}
	}
}

func (s *Slot) setDisplayIndex(i int) {
	if i == s.displayIndex {
		return
	}
	s.displayIndex = i
	s.displayDirty = true
	s.resetCaches()
}

func (s *Slot) setZOrder(z int) {
	if z == s.zOrder {
		return
	}
	s.zOrder = z
	s.zOrderDirty = true
	s.armature.drawOrderDirty = true
}

func (s *Slot) setColor(ct ColorTransform) {
	if ct == s.color {
		return
	}
	s.color = ct
	s.colorDirty = true
}

func (s *Slot) restoreDefaults() {
	s.setDisplayIndex(s.data.displayIndex)
	s.setZOrder(s.data.zOrder)
	s.setColor(s.data.color)
}

func (s *Slot) resetCaches() {
	s.meshValid = false
	s.bbValid = false
	s.invValid = false
	s.meshVerts = s.meshVerts[:0]
	s.bbVerts = s.bbVerts[:0]
}

// update recomputes the slot after the bone pass and pushes changes to the
// binding and proxy. skinChanged reports whether any bone moved this frame.
func (s *Slot) update(skinChanged bool) {
	a := s.armature
	bone := &a.bones[s.data.bone]
	if bone.changed {
		s.transformDirty = true
	}

	if s.displayDirty {
		s.displayDirty = false
		s.transformDirty = true
		s.colorDirty = true
		if s.binding != nil {
			s.binding.UpdateDisplay(s)
		}
		a.proxy.OnDisplayChanged(s)
	}

	if s.zOrderDirty {
		s.zOrderDirty = false
		if zb, ok := s.binding.(ZOrderBinding); ok {
			zb.UpdateZOrder(s)
		}
		a.proxy.OnDisplayChanged(s)
	}

	d := s.display()
	if s.transformDirty {
		s.transformDirty = false
		m := IdentityMatrix
		if d != nil {
			m = d.matrix
		}
		s.world = bone.world.Multiply(m)
		s.meshValid = false
		s.bbValid = false
		s.invValid = false
		if s.binding != nil {
			s.binding.UpdateTransform(s)
		}
	} else if skinChanged && d != nil && d.mesh != nil && len(d.mesh.weights) > 0 {
		s.meshValid = false
		if s.binding != nil {
			s.binding.UpdateTransform(s)
		}
	}

	if s.colorDirty {
		s.colorDirty = false
		s.globalColor = a.globalColor().Concat(s.color)
		if cb, ok := s.binding.(ColorBinding); ok {
			cb.UpdateColor(s)
		}
	}
}

// release hands the slot's binding back to the host.
func (s *Slot) release() {
	if db, ok := s.binding.(DisposableBinding); ok {
		db.Dispose(s)
	}
	s.binding = nil
}

// ImageAABB returns the world-space bounds of a w x h image placed at the
// active display's pivot.
func (s *Slot) ImageAABB(w, h float64) Rect {
	p := s.Pivot()
	return worldAABB(s.world, -p.X*w, -p.Y*h, w, h)
}
