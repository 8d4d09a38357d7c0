package bones

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Armature is a runtime instance of an ArmatureData: a bone hierarchy, its
// slots and an animation player. Armatures are built by a Factory and are
// driven by a single goroutine calling AdvanceTime once per frame.
type Armature struct {
	id    string
	data  *ArmatureData
	proxy HostProxy
	// listener is the proxy's EventListener capability, if any.
	listener EventListener
	log      *zap.Logger
	debug    bool

	bones     []Bone
	slots     []Slot
	animation *Animation

	drawOrder      []int
	drawOrderDirty bool

	rootMatrix   Matrix // set by the host
	parentMatrix Matrix // hosting slot's world matrix
	flipX, flipY bool

	color       ColorTransform
	parentColor ColorTransform

	parentSlot *Slot

	updating         bool
	disposed         bool
	disposeRequested bool
	pendingDispose   []*Armature
	frameErrors      []error
}

func newArmature(data *ArmatureData, proxy HostProxy, id string, log *zap.Logger, debug bool) *Armature {
	if proxy == nil {
		proxy = NopProxy{}
	}
	a := &Armature{
		id:             id,
		data:           data,
		proxy:          proxy,
		log:            log,
		debug:          debug,
		bones:          make([]Bone, len(data.bones)),
		slots:          make([]Slot, len(data.slots)),
		drawOrderDirty: true,
		rootMatrix:     IdentityMatrix,
		parentMatrix:   IdentityMatrix,
		color:          IdentityColorTransform,
		parentColor:    IdentityColorTransform,
	}
	if l, ok := proxy.(EventListener); ok {
		a.listener = l
	}
	for i := range a.bones {
		a.bones[i].init(a, &data.bones[i], i)
	}
	for i := range a.slots {
		a.slots[i].init(a, &data.slots[i], i)
	}
	a.animation = newAnimation(a)
	return a
}

// Name returns the armature name.
func (a *Armature) Name() string { return a.data.Name }

// ID returns the instance id assigned at build time.
func (a *Armature) ID() string { return a.id }

// Data returns the shared compiled data the armature was built from.
func (a *Armature) Data() *ArmatureData { return a.data }

// Proxy returns the host proxy.
func (a *Armature) Proxy() HostProxy { return a.proxy }

// Animation returns the animation player.
func (a *Armature) Animation() *Animation { return a.animation }

// ParentSlot returns the slot hosting this armature, or nil for a top-level
// armature.
func (a *Armature) ParentSlot() *Slot { return a.parentSlot }

// IsDisposed reports whether Dispose has been called, including a disposal
// still pending the end of an update pass.
func (a *Armature) IsDisposed() bool { return a.disposed || a.disposeRequested }

// FrameErrors returns the per-slot failures isolated during the last
// AdvanceTime. The slice is reset on every call.
func (a *Armature) FrameErrors() []error { return a.frameErrors }

// Bones returns every bone in update order (parents first).
func (a *Armature) Bones() []*Bone {
	out := make([]*Bone, len(a.bones))
	for i := range a.bones {
		out[i] = &a.bones[i]
	}
	return out
}

// Bone returns the named bone, or nil.
func (a *Armature) Bone(name string) *Bone {
	i, ok := a.data.boneIndex[name]
	if !ok || a.bones == nil {
		return nil
	}
	return &a.bones[i]
}

// Slots returns every slot in definition order.
func (a *Armature) Slots() []*Slot {
	out := make([]*Slot, len(a.slots))
	for i := range a.slots {
		out[i] = &a.slots[i]
	}
	return out
}

// Slot returns the named slot, or nil.
func (a *Armature) Slot(name string) *Slot {
	i, ok := a.data.slotIndex[name]
	if !ok || a.slots == nil {
		return nil
	}
	return &a.slots[i]
}

// DrawOrder returns slots sorted by ascending z-order. Slots sharing a
// z-order keep definition order.
func (a *Armature) DrawOrder() []*Slot {
	a.sortDrawOrder()
	out := make([]*Slot, len(a.drawOrder))
	for i, idx := range a.drawOrder {
		out[i] = &a.slots[idx]
	}
	return out
}

// RootMatrix returns the host-set root transform.
func (a *Armature) RootMatrix() Matrix { return a.rootMatrix }

// SetRootMatrix positions the whole armature. Every bone is recomputed on
// the next update.
func (a *Armature) SetRootMatrix(m Matrix) {
	if a.debug {
		debugCheckDisposed(a, "SetRootMatrix")
	}
	if m == a.rootMatrix {
		return
	}
	a.rootMatrix = m
	a.markAllBonesDirty()
}

// FlipX reports whether the armature is mirrored horizontally.
func (a *Armature) FlipX() bool { return a.flipX }

// FlipY reports whether the armature is mirrored vertically.
func (a *Armature) FlipY() bool { return a.flipY }

// SetFlip mirrors the armature around its root.
func (a *Armature) SetFlip(x, y bool) {
	if a.debug {
		debugCheckDisposed(a, "SetFlip")
	}
	if x == a.flipX && y == a.flipY {
		return
	}
	a.flipX, a.flipY = x, y
	a.markAllBonesDirty()
}

// ColorTransform returns the armature's own color transform.
func (a *Armature) ColorTransform() ColorTransform { return a.color }

// SetColorTransform tints the whole armature. Every slot (and through them
// every child armature) picks the change up on the next update.
func (a *Armature) SetColorTransform(ct ColorTransform) {
	if a.debug {
		debugCheckDisposed(a, "SetColorTransform")
	}
	ct = normalizeColor(ct)
	if ct == a.color {
		return
	}
	a.color = ct
	a.markAllSlotsColorDirty()
}

// effectiveRoot is the matrix root bones are composed with.
func (a *Armature) effectiveRoot() Matrix {
	m := a.parentMatrix.Multiply(a.rootMatrix)
	if a.flipX || a.flipY {
		sx, sy := 1.0, 1.0
		if a.flipX {
			sx = -1
		}
		if a.flipY {
			sy = -1
		}
		m = m.Multiply(ScaleMatrix(sx, sy))
	}
	return m
}

func (a *Armature) globalColor() ColorTransform {
	return a.parentColor.Concat(a.color)
}

// markBoneDirty marks bone i and all of its descendants dirty. A dirty bone
// always has dirty descendants, so marked subtrees are skipped.
func (a *Armature) markBoneDirty(i int) {
	if a.bones == nil {
		return
	}
	stack := []int{i}
	for len(stack) > 0 {
		n := len(stack) - 1
		b := &a.bones[stack[n]]
		stack = stack[:n]
		if b.dirty {
			continue
		}
		b.dirty = true
		stack = append(stack, b.data.children...)
	}
}

func (a *Armature) markAllBonesDirty() {
	for i := range a.bones {
		a.bones[i].dirty = true
	}
}

func (a *Armature) markAllSlotsColorDirty() {
	for i := range a.slots {
		a.slots[i].colorDirty = true
	}
}

// resetPose returns every bone to its bind pose and every slot to its
// default display state. Host offsets are kept.
func (a *Armature) resetPose() {
	for i := range a.bones {
		a.bones[i].setAnimationPose(IdentityTransform)
	}
	for i := range a.slots {
		a.slots[i].restoreDefaults()
		a.slots[i].animated = false
	}
}

// setParentState receives the hosting slot's world matrix and color.
func (a *Armature) setParentState(world Matrix, color ColorTransform) {
	if world != a.parentMatrix {
		a.parentMatrix = world
		a.markAllBonesDirty()
	}
	if color != a.parentColor {
		a.parentColor = color
		a.markAllSlotsColorDirty()
	}
}

// attachTo makes s the hosting slot.
func (a *Armature) attachTo(s *Slot) {
	a.parentSlot = s
	a.setParentState(s.world, s.globalColor)
	if a.debug {
		debugCheckNesting(a)
	}
}

// isAncestorOf reports whether a is other or hosts other, directly or
// through nested slots.
func (a *Armature) isAncestorOf(other *Armature) bool {
	for p := other; p != nil; {
		if p == a {
			return true
		}
		if p.parentSlot == nil {
			return false
		}
		p = p.parentSlot.armature
	}
	return false
}

// hostsChild reports whether any display of any slot hosts child.
func (a *Armature) hostsChild(child *Armature) bool {
	for i := range a.slots {
		for _, c := range a.slots[i].children {
			if c == child {
				return true
			}
		}
	}
	return false
}

// AdvanceTime runs one update cycle: the animation advances by dt seconds,
// changed bones are recomputed, slots push their state to bindings, hosted
// child armatures advance, OnPoseUpdated fires and queued animation events
// are delivered. AdvanceTime(0) refreshes the pose without moving time and
// is idempotent.
//
// Failures inside a single slot (including panics raised by bindings) are
// logged, collected in FrameErrors and never abort the pass. A NaN or
// infinite dt is rejected with ErrInvalidTime before anything moves.
func (a *Armature) AdvanceTime(dt float64) error {
	if a.disposed || a.disposeRequested {
		return fmt.Errorf("%w: AdvanceTime on %q", ErrUseAfterDispose, a.data.Name)
	}
	if a.updating {
		return fmt.Errorf("%w: %q", ErrReentrantAdvance, a.data.Name)
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		a.log.Warn("ignoring non-finite time step", zap.Float64("dt", dt))
		return fmt.Errorf("%w: %v on %q", ErrInvalidTime, dt, a.data.Name)
	}
	a.updating = true
	defer a.endPass()
	a.frameErrors = a.frameErrors[:0]

	var stats frameStats
	var start time.Time
	if a.debug {
		start = time.Now()
	}

	a.animation.advance(dt)
	stats.bones = a.updateBones()
	if a.debug {
		stats.pose = time.Since(start)
		start = time.Now()
	}

	stats.slots = a.updateSlots(dt, stats.bones > 0)
	a.sortDrawOrder()
	if a.debug {
		stats.slotTime = time.Since(start)
	}

	a.proxy.OnPoseUpdated(a)
	events := a.animation.drainEvents()
	if a.listener != nil {
		for _, e := range events {
			a.listener.OnAnimationEvent(e)
		}
	}
	if a.debug {
		debugLogFrame(a, stats)
	}
	return nil
}

// endPass closes an update pass and performs the disposals requested while
// it ran.
func (a *Armature) endPass() {
	a.updating = false
	pending := a.pendingDispose
	a.pendingDispose = nil
	for _, p := range pending {
		p.disposeNow()
	}
}

// updateBones recomputes dirty bones in topological order and returns how
// many changed.
func (a *Armature) updateBones() int {
	root := a.effectiveRoot()
	n := 0
	for i := range a.bones {
		if a.bones[i].updateTransform(root) {
			n++
		}
	}
	return n
}

// updateSlots updates every slot, isolating failures, then advances the
// active child armatures. It returns the number of slots processed.
func (a *Armature) updateSlots(dt float64, bonesChanged bool) int {
	for i := range a.slots {
		s := &a.slots[i]
		if err := a.safeSlotUpdate(s, bonesChanged); err != nil {
			a.frameErrors = append(a.frameErrors, err)
			a.log.Error("slot update failed", zap.String("slot", s.data.name), zap.Error(err))
			continue
		}
		child := s.ChildArmature()
		if child == nil || child.disposeRequested || child.disposed {
			continue
		}
		child.setParentState(s.world, s.globalColor)
		if err := child.AdvanceTime(dt); err != nil {
			err = fmt.Errorf("bones: child armature in slot %q: %w", s.data.name, err)
			a.frameErrors = append(a.frameErrors, err)
			a.log.Error("child armature update failed", zap.String("slot", s.data.name), zap.Error(err))
			continue
		}
		a.frameErrors = append(a.frameErrors, child.frameErrors...)
	}
	return len(a.slots)
}

func (a *Armature) safeSlotUpdate(s *Slot, bonesChanged bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bones: slot %q: panic: %v", s.data.name, r)
		}
	}()
	s.update(bonesChanged)
	return nil
}

// sortDrawOrder refreshes the cached draw order when a z-order changed.
func (a *Armature) sortDrawOrder() {
	if !a.drawOrderDirty {
		return
	}
	a.drawOrderDirty = false
	if cap(a.drawOrder) < len(a.slots) {
		a.drawOrder = make([]int, len(a.slots))
	}
	a.drawOrder = a.drawOrder[:len(a.slots)]
	for i := range a.drawOrder {
		a.drawOrder[i] = i
	}
	sort.SliceStable(a.drawOrder, func(i, j int) bool {
		return a.slots[a.drawOrder[i]].zOrder < a.slots[a.drawOrder[j]].zOrder
	})
}

// BoundingBoxAt returns the topmost slot whose active bounding box contains
// the world-space point, searching hosted child armatures too. It returns
// nil when no bounding box is hit.
func (a *Armature) BoundingBoxAt(x, y float64) *Slot {
	order := a.DrawOrder()
	for i := len(order) - 1; i >= 0; i-- {
		s := order[i]
		if child := s.ChildArmature(); child != nil && !child.IsDisposed() {
			if hit := child.BoundingBoxAt(x, y); hit != nil {
				return hit
			}
			continue
		}
		if s.ContainsPoint(x, y) {
			return s
		}
	}
	return nil
}

// ContainsPoint reports whether any bounding box of the armature contains
// the world-space point.
func (a *Armature) ContainsPoint(x, y float64) bool {
	return a.BoundingBoxAt(x, y) != nil
}

// Dispose releases the armature: it detaches from its hosting slot,
// disposes hosted child armatures depth-first, releases bindings, bones and
// slots, and calls the proxy's OnClear exactly once. Dispose is idempotent.
// Called while this armature or an ancestor is inside AdvanceTime, the
// disposal is deferred to the end of that pass; AdvanceTime is rejected
// from the moment Dispose is called.
func (a *Armature) Dispose() {
	if a.disposed || a.disposeRequested {
		return
	}
	if owner := a.updatingOwner(); owner != nil {
		a.disposeRequested = true
		owner.pendingDispose = append(owner.pendingDispose, a)
		a.log.Debug("dispose deferred to end of update", zap.String("owner", owner.data.Name))
		return
	}
	a.disposeNow()
}

// updatingOwner returns the outermost armature in a's hosting chain that is
// inside AdvanceTime, or nil.
func (a *Armature) updatingOwner() *Armature {
	var owner *Armature
	for p := a; p != nil; {
		if p.updating {
			owner = p
		}
		if p.parentSlot == nil {
			break
		}
		p = p.parentSlot.armature
	}
	return owner
}

func (a *Armature) disposeNow() {
	if a.disposed {
		return
	}
	a.disposed = true
	a.disposeRequested = true
	if ps := a.parentSlot; ps != nil {
		ps.detachChild(a)
		a.parentSlot = nil
	}
	for i := range a.slots {
		s := &a.slots[i]
		for j, c := range s.children {
			if c == nil {
				continue
			}
			s.children[j] = nil
			c.parentSlot = nil
			c.disposeNow()
		}
		s.release()
	}
	a.bones = nil
	a.slots = nil
	a.drawOrder = nil
	a.pendingDispose = nil
	a.proxy.OnClear()
	a.log.Debug("armature disposed")
}
