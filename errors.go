package bones

import "errors"

var (
	// ErrInvalidSkeleton reports a malformed bone, slot or animation graph.
	// Construction aborts and no armature is returned.
	ErrInvalidSkeleton = errors.New("bones: invalid skeleton")

	// ErrUseAfterDispose reports an operation on a disposed armature.
	ErrUseAfterDispose = errors.New("bones: armature used after dispose")

	// ErrUnknownAnimation reports a Play request for an animation the
	// armature does not define. Playback is left untouched.
	ErrUnknownAnimation = errors.New("bones: unknown animation")

	// ErrDegenerateTransform reports an inversion of a near-singular matrix.
	// The identity matrix is returned alongside it.
	ErrDegenerateTransform = errors.New("bones: degenerate transform")

	// ErrReentrantAdvance reports AdvanceTime called on an armature that is
	// already inside its own AdvanceTime.
	ErrReentrantAdvance = errors.New("bones: reentrant AdvanceTime")

	// ErrInvalidTime reports a NaN or infinite dt passed to AdvanceTime.
	// The armature is left untouched.
	ErrInvalidTime = errors.New("bones: invalid time step")

	// ErrSkeletonNotFound reports a cache lookup for an unknown skeleton.
	ErrSkeletonNotFound = errors.New("bones: skeleton not found")

	// ErrArmatureNotFound reports a build request for an unknown armature.
	ErrArmatureNotFound = errors.New("bones: armature not found")
)
