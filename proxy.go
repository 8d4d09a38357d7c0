package bones

// HostProxy is implemented by the embedding application to follow an
// armature's lifecycle. All callbacks run on the goroutine driving the
// armature.
type HostProxy interface {
	// OnCreate is called once when the armature finishes construction.
	OnCreate(a *Armature)
	// OnPoseUpdated is called once per AdvanceTime after bones and slots
	// are recomputed.
	OnPoseUpdated(a *Armature)
	// OnDisplayChanged is called when a slot's active display or z-order
	// changes.
	OnDisplayChanged(s *Slot)
	// OnClear is called exactly once when the armature is disposed.
	OnClear()
}

// BindingProvider is an optional HostProxy capability. When present, every
// slot receives the binding it returns at construction time. A nil binding
// leaves the slot unbound.
type BindingProvider interface {
	NewBinding(s *Slot) DisplayBinding
}

// ChildProxyProvider is an optional HostProxy capability used to create
// proxies for child armatures hosted by slots. Without it, child armatures
// get a NopProxy.
type ChildProxyProvider interface {
	NewChildProxy(s *Slot, armatureName string) HostProxy
}

// EventListener is an optional HostProxy capability receiving animation
// events. Events are delivered at the end of AdvanceTime, after
// OnPoseUpdated.
type EventListener interface {
	OnAnimationEvent(e AnimationEvent)
}

// DisplayBinding receives a slot's render state. It is the capability set a
// renderer implements per slot; the core never depends on a concrete
// display type.
type DisplayBinding interface {
	// UpdateDisplay is called when the slot's active display changes.
	UpdateDisplay(s *Slot)
	// UpdateTransform is called when the slot's world matrix (or, for
	// meshes, its deformed vertices) changes.
	UpdateTransform(s *Slot)
}

// ColorBinding is an optional DisplayBinding capability called when the
// slot's global color changes.
type ColorBinding interface {
	UpdateColor(s *Slot)
}

// ZOrderBinding is an optional DisplayBinding capability called when the
// armature's draw order changes.
type ZOrderBinding interface {
	UpdateZOrder(s *Slot)
}

// DisposableBinding is an optional DisplayBinding capability called once
// when the slot is released.
type DisposableBinding interface {
	Dispose(s *Slot)
}

// AnimationEvent is delivered to EventListener proxies.
type AnimationEvent struct {
	Type      EventType
	Armature  *Armature
	Animation string

	// Frame event fields (EventFrame only).
	Name string
	Bone string
	Data string
	Time float64
}

// NopProxy ignores every callback. It suits headless evaluation.
type NopProxy struct{}

func (NopProxy) OnCreate(*Armature)      {}
func (NopProxy) OnPoseUpdated(*Armature) {}
func (NopProxy) OnDisplayChanged(*Slot)  {}
func (NopProxy) OnClear()                {}
