package bones

import (
	"fmt"

	"go.uber.org/zap"
)

// Animation is an armature's animation player. One state is active at a
// time; during a cross-fade the previous state keeps playing underneath
// until the new one reaches full weight.
type Animation struct {
	// TimeScale multiplies every advance. Negative values play backwards.
	TimeScale float64

	armature  *Armature
	data      *ArmatureData
	current   *AnimationState
	previous  *AnimationState
	poseDirty bool
	events    []AnimationEvent

	// Scratch buffers sized to the armature, reused every frame.
	curBones  []Transform
	prevBones []Transform
	boneMask  []uint8
	curSlots  []slotSample
	prevSlots []slotSample
	slotMask  []uint8
}

const (
	maskCurrent  uint8 = 1 << iota // sampled by the current state
	maskPrevious                   // sampled by the fading-out state
)

func newAnimation(a *Armature) *Animation {
	nb, ns := len(a.bones), len(a.slots)
	return &Animation{
		TimeScale: 1,
		armature:  a,
		data:      a.data,
		curBones:  make([]Transform, nb),
		prevBones: make([]Transform, nb),
		boneMask:  make([]uint8, nb),
		curSlots:  make([]slotSample, ns),
		prevSlots: make([]slotSample, ns),
		slotMask:  make([]uint8, ns),
	}
}

// AnimationNames returns the names of every animation the armature defines.
func (an *Animation) AnimationNames() []string {
	return an.data.AnimationNames()
}

// HasAnimation reports whether the armature defines the named animation.
func (an *Animation) HasAnimation(name string) bool {
	return an.data.HasAnimation(name)
}

// Play starts the named animation from time 0, replacing the current one
// immediately. playTimes 0 loops forever; a negative value uses the
// animation's default. An unknown name leaves playback untouched, logs a
// warning and returns ErrUnknownAnimation.
func (an *Animation) Play(name string, playTimes int) (*AnimationState, error) {
	return an.FadeIn(name, 0, playTimes)
}

// PlayDefault plays the armature's default animation, or the first one
// defined when no default is set. It returns nil when there are none.
func (an *Animation) PlayDefault() *AnimationState {
	name := an.data.DefaultAnimation
	if name == "" {
		if len(an.data.animOrder) == 0 {
			return nil
		}
		name = an.data.animOrder[0]
	}
	st, _ := an.Play(name, -1)
	return st
}

// FadeIn starts the named animation and cross-fades to it from the current
// one over fadeTime seconds. A negative fadeTime uses the animation's
// default fade. The new state's pose fully replaces the old one once its
// weight reaches 1.
func (an *Animation) FadeIn(name string, fadeTime float64, playTimes int) (*AnimationState, error) {
	ad, ok := an.data.animations[name]
	if !ok {
		an.armature.log.Warn("unknown animation", zap.String("animation", name))
		return nil, fmt.Errorf("%w: %q in armature %q", ErrUnknownAnimation, name, an.data.Name)
	}
	if fadeTime < 0 {
		fadeTime = ad.fadeInTime
	}
	if playTimes < 0 {
		playTimes = ad.playTimes
	}
	st := newAnimationState(ad, playTimes)
	if fadeTime > 0 && an.current != nil {
		if an.previous != nil {
			an.emit(AnimationEvent{Type: EventFadeOutComplete, Animation: an.previous.Name()})
		}
		an.previous = an.current
		st.startFade(fadeTime)
	} else {
		an.previous = nil
	}
	an.current = st
	an.poseDirty = true
	return st, nil
}

// GotoAndPlay starts the named animation at time t (seconds).
func (an *Animation) GotoAndPlay(name string, t float64, playTimes int) (*AnimationState, error) {
	st, err := an.Play(name, playTimes)
	if err != nil {
		return nil, err
	}
	st.seek(t)
	return st, nil
}

// GotoAndStop shows the named animation frozen at time t (seconds). The
// pose is applied on the next AdvanceTime, including AdvanceTime(0).
func (an *Animation) GotoAndStop(name string, t float64) (*AnimationState, error) {
	st, err := an.Play(name, 1)
	if err != nil {
		return nil, err
	}
	st.seek(t)
	st.started = true
	st.Stop()
	return st, nil
}

// Stop halts playback. The last applied pose stays on the armature; use
// Reset to return to the bind pose.
func (an *Animation) Stop() {
	if an.current != nil {
		an.current.Stop()
	}
	an.previous = nil
}

// Reset stops playback, forgets every state and restores the bind pose and
// default slot states.
func (an *Animation) Reset() {
	an.current = nil
	an.previous = nil
	an.poseDirty = false
	an.armature.resetPose()
}

// State returns the active state, or nil.
func (an *Animation) State() *AnimationState {
	return an.current
}

// LastAnimationName returns the name of the most recently started
// animation, or "".
func (an *Animation) LastAnimationName() string {
	if an.current == nil {
		return ""
	}
	return an.current.Name()
}

// IsPlaying reports whether the active state is advancing.
func (an *Animation) IsPlaying() bool {
	return an.current != nil && an.current.IsPlaying()
}

// IsCompleted reports whether the active state finished all its loops.
func (an *Animation) IsCompleted() bool {
	return an.current != nil && an.current.IsCompleted()
}

func (an *Animation) emit(e AnimationEvent) {
	e.Armature = an.armature
	an.events = append(an.events, e)
}

// drainEvents returns and clears the queued events.
func (an *Animation) drainEvents() []AnimationEvent {
	ev := an.events
	an.events = nil
	return ev
}

// advance moves every state by dt and applies the resulting pose to the
// armature's bones and slots. A stopped player leaves the pose untouched
// unless a cross-fade is still running, which always runs to completion.
func (an *Animation) advance(dt float64) {
	cur, prev := an.current, an.previous
	if cur == nil {
		return
	}
	if cur.state == StateStopped && !an.poseDirty && cur.fade == nil && prev == nil {
		return
	}
	an.poseDirty = false

	dt = clampStep(dt * an.TimeScale)
	if prev != nil {
		prev.advance(dt, an.emit)
	}
	cur.advance(dt, an.emit)
	fadeDt := dt
	if fadeDt < 0 {
		fadeDt = -fadeDt
	}
	if cur.advanceFade(fadeDt) {
		an.emit(AnimationEvent{Type: EventFadeInComplete, Animation: cur.Name()})
	}
	if prev != nil && cur.fade == nil {
		an.emit(AnimationEvent{Type: EventFadeOutComplete, Animation: prev.Name()})
		an.previous = nil
		prev = nil
	}
	an.apply(cur, prev)
}

// apply samples cur (and prev while fading) and writes the blended pose.
// Bones and slots not covered by any timeline return to their defaults.
func (an *Animation) apply(cur, prev *AnimationState) {
	a := an.armature
	clear(an.boneMask)
	clear(an.slotMask)

	an.sample(cur, an.curBones, an.curSlots, maskCurrent)
	w := 1.0
	if prev != nil {
		an.sample(prev, an.prevBones, an.prevSlots, maskPrevious)
		w = cur.weight
	}

	for i := range a.bones {
		m := an.boneMask[i]
		if m == 0 {
			a.bones[i].setAnimationPose(IdentityTransform)
			continue
		}
		to := IdentityTransform
		if m&maskCurrent != 0 {
			to = an.curBones[i]
		}
		pose := to
		if prev != nil && w < 1 {
			from := IdentityTransform
			if m&maskPrevious != 0 {
				from = an.prevBones[i]
			}
			pose = from.Lerp(to, w)
		}
		a.bones[i].setAnimationPose(pose)
	}

	for i := range a.slots {
		s := &a.slots[i]
		m := an.slotMask[i]
		if m == 0 {
			if s.animated {
				s.restoreDefaults()
				s.animated = false
			}
			continue
		}
		s.animated = true
		def := slotSample{displayIndex: s.data.displayIndex, zOrder: s.data.zOrder, color: s.data.color}
		to := def
		if m&maskCurrent != 0 {
			to = an.curSlots[i]
		} else if m&maskPrevious != 0 && w < 1 {
			// The new state does not animate this slot: keep the old
			// discrete state until the fade completes.
			to.displayIndex = an.prevSlots[i].displayIndex
			to.zOrder = an.prevSlots[i].zOrder
		}
		color := to.color
		if prev != nil && w < 1 {
			from := def.color
			if m&maskPrevious != 0 {
				from = an.prevSlots[i].color
			}
			color = from.Lerp(to.color, w)
		}
		s.setDisplayIndex(to.displayIndex)
		s.setZOrder(to.zOrder)
		s.setColor(color)
	}
}

func (an *Animation) sample(st *AnimationState, bones []Transform, slots []slotSample, mask uint8) {
	t := st.time
	for i := range st.data.bones {
		tl := &st.data.bones[i]
		bones[tl.bone] = tl.sample(t)
		an.boneMask[tl.bone] |= mask
	}
	for i := range st.data.slots {
		tl := &st.data.slots[i]
		slots[tl.slot] = tl.sample(t)
		an.slotMask[tl.slot] |= mask
	}
}
