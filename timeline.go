package bones

import "sort"

// frameSegment locates time t within a keyframe list. It returns the index of
// the keyframe at or before t and the linear progress toward the next one.
// Before the first keyframe the first is held; after the last, the last.
func frameSegment(n int, at func(int) float64, t float64) (int, float64) {
	if n == 1 || t <= at(0) {
		return 0, 0
	}
	if t >= at(n-1) {
		return n - 1, 0
	}
	// First keyframe strictly after t.
	next := sort.Search(n, func(i int) bool { return at(i) > t })
	i := next - 1
	span := at(next) - at(i)
	if span <= 0 {
		return i, 0
	}
	return i, (t - at(i)) / span
}

// sample returns the bone pose offset at time t.
func (tl *boneTimeline) sample(t float64) Transform {
	frames := tl.frames
	i, p := frameSegment(len(frames), func(k int) float64 { return frames[k].Time }, t)
	cur := frames[i].Transform
	if p == 0 || i+1 >= len(frames) {
		return cur
	}
	return cur.Lerp(frames[i+1].Transform, frames[i].Ease.Apply(p))
}

// slotSample is the slot state a slot timeline produces at one instant.
type slotSample struct {
	displayIndex int
	zOrder       int
	color        ColorTransform
}

// sample returns the slot state at time t. Display index and z-order come
// from the keyframe at or before t; color interpolates.
func (tl *slotTimeline) sample(t float64) slotSample {
	frames := tl.frames
	i, p := frameSegment(len(frames), func(k int) float64 { return frames[k].Time }, t)
	f := frames[i]
	s := slotSample{displayIndex: f.DisplayIndex, zOrder: f.ZOrder, color: f.Color}
	if p > 0 && i+1 < len(frames) {
		s.color = f.Color.Lerp(frames[i+1].Color, f.Ease.Apply(p))
	}
	return s
}
