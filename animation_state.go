package bones

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// PlayState is the playback state of an AnimationState.
type PlayState uint8

const (
	StateStopped PlayState = iota // not advancing; the last applied pose is kept
	StatePlaying                  // first pass through the timeline
	StateLooping                  // wrapped at least once and still playing
)

// String returns the state name.
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateLooping:
		return "looping"
	default:
		return "unknown"
	}
}

// eventLoopLimit caps how many whole loops a single advance walks one by one
// (firing frame events); further loops are skipped arithmetically.
const eventLoopLimit = 8


// AnimationState is one playing instance of an animation.
type AnimationState struct {
	// TimeScale multiplies the player's time scale for this state only.
	TimeScale float64

	data      *animationData
	playTimes int // 0 = infinite
	remaining int // loops left, finite play only
	loops     int // completed loops
	time      float64
	totalTime float64
	state     PlayState
	completed bool
	started   bool
	moved     bool

	weight float64
	fade   *gween.Tween
}

func newAnimationState(data *animationData, playTimes int) *AnimationState {
	return &AnimationState{
		TimeScale: 1,
		data:      data,
		playTimes: playTimes,
		remaining: playTimes,
		state:     StatePlaying,
		weight:    1,
	}
}

// Name returns the animation name.
func (st *AnimationState) Name() string { return st.data.name }

// Duration returns the animation length in seconds.
func (st *AnimationState) Duration() float64 { return st.data.duration }

// Time returns the playhead position within the current loop.
func (st *AnimationState) Time() float64 { return st.time }

// TotalTime returns the cumulative playback time, across loops.
func (st *AnimationState) TotalTime() float64 { return st.totalTime }

// PlayTimes returns the configured loop count (0 = infinite).
func (st *AnimationState) PlayTimes() int { return st.playTimes }

// CurrentPlayTimes returns the number of completed loops.
func (st *AnimationState) CurrentPlayTimes() int { return st.loops }

// State returns the playback state.
func (st *AnimationState) State() PlayState { return st.state }

// IsPlaying reports whether the state advances with time.
func (st *AnimationState) IsPlaying() bool { return st.state != StateStopped }

// IsCompleted reports whether every loop finished.
func (st *AnimationState) IsCompleted() bool { return st.completed }

// Weight returns the cross-fade weight in [0, 1].
func (st *AnimationState) Weight() float64 { return st.weight }

// IsFading reports whether the state is still fading in.
func (st *AnimationState) IsFading() bool { return st.fade != nil }

// Stop halts the state. The pose it last produced stays applied.
func (st *AnimationState) Stop() {
	st.state = StateStopped
}

// Resume restarts a stopped, uncompleted state.
func (st *AnimationState) Resume() {
	if st.state == StateStopped && !st.completed {
		if st.loops > 0 {
			st.state = StateLooping
		} else {
			st.state = StatePlaying
		}
	}
}

// startFade begins fading the state in from weight 0 over duration seconds.
func (st *AnimationState) startFade(duration float64) {
	st.weight = 0
	st.fade = gween.New(0, 1, float32(duration), ease.Linear)
}

// advanceFade moves the fade-in tween. It reports true when the fade ends
// during this call.
func (st *AnimationState) advanceFade(dt float64) bool {
	if st.fade == nil || dt <= 0 {
		return false
	}
	v, done := st.fade.Update(float32(dt))
	st.weight = math.Min(1, math.Max(0, float64(v)))
	if done {
		st.weight = 1
		st.fade = nil
		return true
	}
	return false
}

// seek places the playhead at t within [0, duration] without firing events.
func (st *AnimationState) seek(t float64) {
	st.time = math.Min(math.Max(t, 0), st.data.duration)
}

// advance moves the playhead by dt seconds (already scaled by the player),
// handling looping, completion and frame events, which are passed to emit.
func (st *AnimationState) advance(dt float64, emit func(AnimationEvent)) {
	if st.state == StateStopped {
		return
	}
	if !st.started {
		st.started = true
		emit(AnimationEvent{Type: EventStart, Animation: st.data.name})
		st.fireEvents(st.time, st.time, true, emit)
	}
	dt = clampStep(dt * st.TimeScale)
	if dt == 0 {
		return
	}
	st.totalTime += math.Abs(dt)
	moved := st.moved
	st.moved = true

	d := st.data.duration
	if d <= 0 {
		if st.playTimes > 0 {
			st.loops = st.playTimes
			st.remaining = 0
			st.finish(emit)
		}
		return
	}
	if dt > 0 {
		st.advanceForward(dt, d, emit)
	} else {
		st.advanceBackward(-dt, d, !moved, emit)
	}
}

func (st *AnimationState) advanceForward(dt, d float64, emit func(AnimationEvent)) {
	pos := st.time
	walked := 0
	for {
		end := pos + dt
		if end < d {
			st.fireEvents(pos, end, false, emit)
			st.time = end
			return
		}
		st.fireEvents(pos, d, false, emit)
		dt = end - d
		if st.completeLoop(emit) {
			st.time = d
			return
		}
		pos = 0
		walked++
		if walked >= eventLoopLimit && dt >= d {
			dt = st.skipLoops(dt, d)
		}
		st.fireEvents(0, 0, true, emit)
		if dt == 0 {
			st.time = 0
			return
		}
	}
}

func (st *AnimationState) advanceBackward(dt, d float64, first bool, emit func(AnimationEvent)) {
	pos := st.time
	if pos == 0 && first {
		// A state played in reverse from the start begins at the end.
		pos = d
	}
	walked := 0
	for {
		end := pos - dt
		if end > 0 {
			st.fireEventsReverse(end, pos, emit)
			st.time = end
			return
		}
		st.fireEventsReverse(0, pos, emit)
		dt -= pos
		if st.completeLoop(emit) {
			st.time = 0
			return
		}
		pos = d
		walked++
		if walked >= eventLoopLimit && dt >= d {
			dt = st.skipLoops(dt, d)
		}
		if dt == 0 {
			st.time = d
			return
		}
	}
}

// clampStep keeps a scaled time step finite so the loop walk terminates. NaN
// becomes 0 and infinities saturate.
func clampStep(dt float64) float64 {
	switch {
	case math.IsNaN(dt):
		return 0
	case math.IsInf(dt, 0):
		return math.Copysign(math.MaxFloat64, dt)
	}
	return dt
}

// skipLoops accounts for the whole loops contained in dt without walking
// them and returns the time left over. It never consumes the final loop of a
// finite state. The loop counter of an infinite state saturates.
func (st *AnimationState) skipLoops(dt, d float64) float64 {
	whole := math.Floor(dt / d)
	if st.playTimes > 0 {
		whole = math.Min(whole, float64(st.remaining-1))
		if whole <= 0 {
			return dt
		}
		n := int(whole)
		st.loops += n
		st.remaining -= n
		return dt - whole*d
	}
	if whole >= float64(math.MaxInt-st.loops) {
		st.loops = math.MaxInt
	} else {
		st.loops += int(whole)
	}
	return math.Mod(dt, d)
}

// completeLoop records a finished loop. It reports true when that was the
// last loop of a finite state.
func (st *AnimationState) completeLoop(emit func(AnimationEvent)) bool {
	if st.loops < math.MaxInt {
		st.loops++
	}
	if st.playTimes > 0 {
		st.remaining--
		if st.remaining <= 0 {
			st.finish(emit)
			return true
		}
	}
	st.state = StateLooping
	emit(AnimationEvent{Type: EventLoopComplete, Animation: st.data.name})
	return false
}

func (st *AnimationState) finish(emit func(AnimationEvent)) {
	st.state = StateStopped
	st.completed = true
	emit(AnimationEvent{Type: EventComplete, Animation: st.data.name})
}

// fireEvents emits frame events with times in (from, to], or [from, to] when
// inclusive is set.
func (st *AnimationState) fireEvents(from, to float64, inclusive bool, emit func(AnimationEvent)) {
	for _, e := range st.data.events {
		if e.time > to {
			break
		}
		if e.time < from || (e.time == from && !inclusive) {
			continue
		}
		emit(st.frameEvent(e))
	}
}

// fireEventsReverse emits frame events with times in [from, to) in
// descending order.
func (st *AnimationState) fireEventsReverse(from, to float64, emit func(AnimationEvent)) {
	for i := len(st.data.events) - 1; i >= 0; i-- {
		e := st.data.events[i]
		if e.time < from {
			break
		}
		if e.time >= to {
			continue
		}
		emit(st.frameEvent(e))
	}
}

func (st *AnimationState) frameEvent(e frameEvent) AnimationEvent {
	return AnimationEvent{
		Type:      EventFrame,
		Animation: st.data.name,
		Name:      e.name,
		Bone:      e.bone,
		Data:      e.data,
		Time:      e.time,
	}
}
