package bones

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func rotationOf(b *Bone) float64 {
	return b.AnimationPose().Rotation
}

func TestPlayTimesTwoStopsAfterTwoDurations(t *testing.T) {
	a := buildHero(t, nil)
	st, err := a.Animation().Play("walk", 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 7; i++ {
		mustAdvance(t, a, 0.25)
	}
	if st.IsCompleted() {
		t.Fatalf("completed after %v seconds, want 2", st.TotalTime())
	}
	mustAdvance(t, a, 0.25)
	if !st.IsCompleted() || st.State() != StateStopped {
		t.Fatalf("state = %v after 2s, want stopped and completed", st.State())
	}
	if st.CurrentPlayTimes() != 2 {
		t.Errorf("CurrentPlayTimes = %d, want 2", st.CurrentPlayTimes())
	}
	assertNear(t, "final rotation", rotationOf(a.Bone("A")), math.Pi/2)

	world := a.Bone("B").WorldMatrix()
	for i := 0; i < 4; i++ {
		mustAdvance(t, a, 0.25)
	}
	assertNear(t, "total time", st.TotalTime(), 2)
	if a.Bone("B").WorldMatrix() != world {
		t.Error("pose changed after completion")
	}
}

func TestInfiniteLoopSkipsManyLoops(t *testing.T) {
	a := buildHero(t, nil)
	st, _ := a.Animation().Play("walk", 0)
	mustAdvance(t, a, 100.25)
	assertNear(t, "time", st.Time(), 0.25)
	if st.CurrentPlayTimes() != 100 {
		t.Errorf("CurrentPlayTimes = %d, want 100", st.CurrentPlayTimes())
	}
	if st.State() != StateLooping {
		t.Errorf("state = %v, want looping", st.State())
	}
}

func TestPlayTimesNegativeUsesDefault(t *testing.T) {
	a := buildHero(t, nil)
	st, _ := a.Animation().Play("walk", -1)
	if st.PlayTimes() != 0 {
		t.Errorf("PlayTimes = %d, want the walk default 0", st.PlayTimes())
	}
}

func TestStopFreezesPoseAndResetRestoresBindPose(t *testing.T) {
	a := buildHero(t, nil)
	a.Animation().Play("walk", 0)
	mustAdvance(t, a, 0.5)
	assertNear(t, "rotation at 0.5", rotationOf(a.Bone("A")), math.Pi/4)

	a.Animation().Stop()
	mustAdvance(t, a, 0.25)
	assertNear(t, "rotation after Stop", rotationOf(a.Bone("A")), math.Pi/4)
	if a.Animation().IsPlaying() {
		t.Error("IsPlaying after Stop")
	}

	a.Animation().State().Resume()
	mustAdvance(t, a, 0.25)
	assertNear(t, "rotation after Resume", rotationOf(a.Bone("A")), 3*math.Pi/8)

	a.Animation().Reset()
	mustAdvance(t, a, 0)
	assertNear(t, "rotation after Reset", rotationOf(a.Bone("A")), 0)
	if got := a.Slot("body").DisplayIndex(); got != 0 {
		t.Errorf("display after Reset = %d, want 0", got)
	}
	assertWorldTranslation(t, "B after Reset", a.Bone("B").WorldMatrix(), 10, 0)
}

func TestGotoAndStopShowsFrame(t *testing.T) {
	a := buildHero(t, nil)
	if _, err := a.Animation().GotoAndStop("walk", 0.5); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, a, 0)
	assertNear(t, "rotation", rotationOf(a.Bone("A")), math.Pi/4)
	mustAdvance(t, a, 1)
	assertNear(t, "rotation after advance", rotationOf(a.Bone("A")), math.Pi/4)
}

func TestGotoAndPlayStartsAtTime(t *testing.T) {
	a := buildHero(t, nil)
	st, err := a.Animation().GotoAndPlay("walk", 0.75, 1)
	if err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, a, 0.25)
	if !st.IsCompleted() {
		t.Error("not completed after playing the last quarter")
	}
}

func TestReversePlayback(t *testing.T) {
	a := buildHero(t, nil)
	a.Animation().TimeScale = -1
	st, _ := a.Animation().Play("walk", 1)
	mustAdvance(t, a, 0.25)
	assertNear(t, "time", st.Time(), 0.75)
	assertNear(t, "rotation", rotationOf(a.Bone("A")), 3*math.Pi/8)
	for i := 0; i < 3; i++ {
		mustAdvance(t, a, 0.25)
	}
	if !st.IsCompleted() {
		t.Fatal("reverse play did not complete")
	}
	assertNear(t, "final time", st.Time(), 0)
	assertNear(t, "final rotation", rotationOf(a.Bone("A")), 0)
}

func TestTimeScaleSpeedsUp(t *testing.T) {
	a := buildHero(t, nil)
	st, _ := a.Animation().Play("walk", 0)
	st.TimeScale = 2
	mustAdvance(t, a, 0.25)
	assertNear(t, "time", st.Time(), 0.5)
}

func TestEventsFollowPoseUpdate(t *testing.T) {
	proxy := newRecordingProxy()
	a := buildHero(t, proxy)
	a.Animation().Play("walk", 1)
	for i := 0; i < 4; i++ {
		mustAdvance(t, a, 0.25)
	}
	want := []EventType{EventStart, EventFrame, EventComplete}
	got := proxy.eventTypes()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	step := proxy.events[1]
	if step.Name != "step" || step.Bone != "B" || step.Data != "left" || step.Time != 0.5 {
		t.Errorf("frame event = %+v", step)
	}
	if step.Armature != a || step.Animation != "walk" {
		t.Errorf("frame event source = %v %q", step.Armature, step.Animation)
	}
	// Every event is delivered after the pose update of its frame.
	if proxy.order[0] != "pose" || proxy.order[1] != "start" {
		t.Errorf("callback order = %v", proxy.order)
	}
}

func TestLoopCompleteEvents(t *testing.T) {
	proxy := newRecordingProxy()
	a := buildHero(t, proxy)
	a.Animation().Play("walk", 3)
	mustAdvance(t, a, 3.5)
	var loops, completes, frames int
	for _, e := range proxy.events {
		switch e.Type {
		case EventLoopComplete:
			loops++
		case EventComplete:
			completes++
		case EventFrame:
			frames++
		}
	}
	if loops != 2 || completes != 1 || frames != 3 {
		t.Errorf("loops=%d completes=%d frames=%d, want 2 1 3", loops, completes, frames)
	}
}

func TestFadeInBlendsThenReplaces(t *testing.T) {
	proxy := newRecordingProxy()
	a := buildHero(t, proxy)
	a.Animation().Play("idle", 0)
	mustAdvance(t, a, 0)

	st, err := a.Animation().FadeIn("walk", 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Weight() != 0 || !st.IsFading() {
		t.Fatalf("weight = %v fading=%v, want 0 and true", st.Weight(), st.IsFading())
	}
	mustAdvance(t, a, 0.25)
	assertNear(t, "weight", st.Weight(), 0.5)
	// walk at 0.25 rotates A by π/8; idle leaves it at 0.
	assertNear(t, "blended rotation", rotationOf(a.Bone("A")), math.Pi/16)

	mustAdvance(t, a, 0.25)
	if st.IsFading() || st.Weight() != 1 {
		t.Errorf("weight = %v fading=%v after fade time", st.Weight(), st.IsFading())
	}
	assertNear(t, "rotation", rotationOf(a.Bone("A")), math.Pi/4)

	var fadeIn, fadeOut bool
	for _, e := range proxy.events {
		fadeIn = fadeIn || (e.Type == EventFadeInComplete && e.Animation == "walk")
		fadeOut = fadeOut || (e.Type == EventFadeOutComplete && e.Animation == "idle")
	}
	if !fadeIn || !fadeOut {
		t.Errorf("fade events in=%v out=%v, want both", fadeIn, fadeOut)
	}
}

func TestFadeCompletesAfterTargetStops(t *testing.T) {
	proxy := newRecordingProxy()
	a := buildHero(t, proxy)
	a.Animation().Play("idle", 0)
	mustAdvance(t, a, 0.1)

	st, err := a.Animation().FadeIn("walk", 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	// walk plays once in 1s, halfway through its fade.
	mustAdvance(t, a, 1)
	if !st.IsCompleted() || !st.IsFading() {
		t.Fatalf("completed=%v fading=%v, want both", st.IsCompleted(), st.IsFading())
	}
	assertNear(t, "half-faded rotation", rotationOf(a.Bone("A")), math.Pi/4)

	for i := 0; i < 10; i++ {
		mustAdvance(t, a, 0.5)
	}
	if st.IsFading() || st.Weight() != 1 {
		t.Fatalf("weight = %v fading=%v, want the fade to finish", st.Weight(), st.IsFading())
	}
	if a.Animation().previous != nil {
		t.Error("faded-out state should be released")
	}
	assertNear(t, "final rotation", rotationOf(a.Bone("A")), math.Pi/2)

	var fadeIn, fadeOut int
	for _, e := range proxy.events {
		if e.Type == EventFadeInComplete && e.Animation == "walk" {
			fadeIn++
		}
		if e.Type == EventFadeOutComplete && e.Animation == "idle" {
			fadeOut++
		}
	}
	if fadeIn != 1 || fadeOut != 1 {
		t.Errorf("fade events in=%d out=%d, want 1 each", fadeIn, fadeOut)
	}
}

func TestFadeInterruptedByAnotherFade(t *testing.T) {
	proxy := newRecordingProxy()
	a := buildHero(t, proxy)
	a.Animation().Play("idle", 0)
	mustAdvance(t, a, 0)

	walk, _ := a.Animation().FadeIn("walk", 1, 0)
	mustAdvance(t, a, 0.25)
	idle, _ := a.Animation().FadeIn("idle", 0.5, 0)
	if a.Animation().previous != walk {
		t.Fatal("the interrupted state should fade out")
	}

	mustAdvance(t, a, 0.25)
	assertNear(t, "weight", idle.Weight(), 0.5)
	// walk at 0.5 rotates A by π/4; idle leaves it at 0.
	assertNear(t, "blended rotation", rotationOf(a.Bone("A")), math.Pi/8)

	mustAdvance(t, a, 0.25)
	if idle.IsFading() || a.Animation().previous != nil {
		t.Fatalf("fading=%v previous=%v, want the second fade done", idle.IsFading(), a.Animation().previous)
	}
	assertNear(t, "rotation", rotationOf(a.Bone("A")), 0)

	var got []string
	for _, e := range proxy.events {
		if e.Type == EventFadeInComplete || e.Type == EventFadeOutComplete {
			got = append(got, e.Type.String()+":"+e.Animation)
		}
	}
	want := []string{
		EventFadeOutComplete.String() + ":idle",
		EventFadeInComplete.String() + ":idle",
		EventFadeOutComplete.String() + ":walk",
	}
	if len(got) != len(want) {
		t.Fatalf("fade events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fade event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

// advanceWithin runs AdvanceTime and fails the test if it does not return
// promptly.
func advanceWithin(t *testing.T, a *Armature, dt float64) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.AdvanceTime(dt) }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("AdvanceTime(%v) did not return", dt)
		return nil
	}
}

func TestNonFiniteTimeIsRejected(t *testing.T) {
	a := buildHero(t, nil)
	st, _ := a.Animation().Play("walk", 0)
	mustAdvance(t, a, 0.25)

	for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := advanceWithin(t, a, dt); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("AdvanceTime(%v) = %v, want ErrInvalidTime", dt, err)
		}
	}
	assertNear(t, "time", st.Time(), 0.25)
	assertNear(t, "rotation", rotationOf(a.Bone("A")), math.Pi/8)
	mustAdvance(t, a, 0.25)
	assertNear(t, "time after recovery", st.Time(), 0.5)
}

func TestHugeTimeStepReturns(t *testing.T) {
	a := buildHero(t, nil)
	loop, _ := a.Animation().Play("walk", 0)
	if err := advanceWithin(t, a, 1e300); err != nil {
		t.Fatal(err)
	}
	if loop.State() != StateLooping || loop.Time() < 0 || loop.Time() >= 1 {
		t.Errorf("state=%v time=%v, want looping within one loop", loop.State(), loop.Time())
	}
	if loop.CurrentPlayTimes() <= 0 {
		t.Errorf("CurrentPlayTimes = %d, want saturated positive", loop.CurrentPlayTimes())
	}

	once, _ := a.Animation().Play("walk", 3)
	if err := advanceWithin(t, a, math.MaxFloat64); err != nil {
		t.Fatal(err)
	}
	if !once.IsCompleted() || once.CurrentPlayTimes() != 3 {
		t.Errorf("completed=%v plays=%d, want 3 completed plays", once.IsCompleted(), once.CurrentPlayTimes())
	}
	assertNear(t, "final rotation", rotationOf(a.Bone("A")), math.Pi/2)
}

func TestFadeInNegativeUsesDefaultFade(t *testing.T) {
	a := buildHero(t, nil)
	a.Animation().Play("walk", 0)
	st, _ := a.Animation().FadeIn("idle", -1, -1)
	if !st.IsFading() {
		t.Error("idle default fade-in not applied")
	}
}

func TestSlotColorInterpolates(t *testing.T) {
	a := buildHero(t, nil)
	a.Animation().Play("idle", 0)
	mustAdvance(t, a, 1)
	assertNear(t, "alpha", a.Slot("body").GlobalColor().Multiplier.A, 0.75)
}

func TestUnknownAnimationIsNoOpWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cache := NewDataCache()
	if _, err := cache.Add(heroSkeleton()); err != nil {
		t.Fatal(err)
	}
	a, err := NewFactory(cache, WithLogger(zap.New(core))).BuildArmature("hero", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	prev, _ := a.Animation().Play("walk", 0)

	st, err := a.Animation().Play("fly", 0)
	if !errors.Is(err, ErrUnknownAnimation) || st != nil {
		t.Fatalf("Play(fly) = %v, %v; want nil, ErrUnknownAnimation", st, err)
	}
	if a.Animation().State() != prev {
		t.Error("unknown animation replaced the current state")
	}
	entries := logs.FilterMessage("unknown animation").All()
	if len(entries) != 1 {
		t.Fatalf("warnings = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["animation"] != "fly" || fields["armature"] != "hero" || fields["id"] != a.ID() {
		t.Errorf("warning fields = %v", fields)
	}
}

func TestAnimationQueries(t *testing.T) {
	a := buildHero(t, nil)
	an := a.Animation()
	if !an.HasAnimation("walk") || an.HasAnimation("fly") {
		t.Error("HasAnimation mismatch")
	}
	names := an.AnimationNames()
	if len(names) != 2 || names[0] != "walk" || names[1] != "idle" {
		t.Errorf("AnimationNames = %v", names)
	}
	if an.LastAnimationName() != "" {
		t.Error("LastAnimationName before play not empty")
	}
	st := an.PlayDefault()
	if st == nil || st.Name() != "idle" || an.LastAnimationName() != "idle" {
		t.Errorf("PlayDefault = %v", st)
	}
	if d, ok := a.Data().AnimationDuration("idle"); !ok || d != 2 {
		t.Errorf("AnimationDuration(idle) = %v, %v", d, ok)
	}
}

// --- timelines ---

func TestRotationTimelineCrossesPi(t *testing.T) {
	tl := boneTimeline{frames: []BoneFrame{
		{Time: 0, Transform: Transform{Rotation: DegToRad(170), ScaleX: 1, ScaleY: 1}},
		{Time: 1, Transform: Transform{Rotation: DegToRad(-170), ScaleX: 1, ScaleY: 1}},
	}}
	got := RadToDeg(NormalizeRadian(tl.sample(0.5).Rotation))
	if math.Abs(math.Abs(got)-180) > 1e-9 {
		t.Errorf("rotation at midpoint = %v°, want ±180°", got)
	}
	quarter := RadToDeg(tl.sample(0.25).Rotation)
	assertNearTol(t, "quarter", quarter, 175, 1e-9)
}

func TestTimelineHoldsEnds(t *testing.T) {
	tl := boneTimeline{frames: []BoneFrame{
		{Time: 0.25, Transform: Transform{X: 1, ScaleX: 1, ScaleY: 1}},
		{Time: 0.75, Transform: Transform{X: 3, ScaleX: 1, ScaleY: 1}},
	}}
	assertNear(t, "before first", tl.sample(0).X, 1)
	assertNear(t, "middle", tl.sample(0.5).X, 2)
	assertNear(t, "after last", tl.sample(1).X, 3)
}

func TestTimelineEasing(t *testing.T) {
	tl := boneTimeline{frames: []BoneFrame{
		{Time: 0, Transform: Transform{X: 0, ScaleX: 1, ScaleY: 1}, Ease: EaseStep},
		{Time: 1, Transform: Transform{X: 10, ScaleX: 1, ScaleY: 1}},
	}}
	assertNear(t, "step", tl.sample(0.9).X, 0)
	tl.frames[0].Ease = EaseInQuad
	assertNearTol(t, "inQuad", tl.sample(0.5).X, 2.5, 1e-6)
}

func TestSlotTimelineStepsDisplayAndLerpsColor(t *testing.T) {
	tl := slotTimeline{frames: []SlotFrame{
		{Time: 0, DisplayIndex: 0, ZOrder: 1, Color: IdentityColorTransform},
		{Time: 1, DisplayIndex: 1, ZOrder: 2, Color: ColorTransform{Multiplier: Color{0, 0, 0, 0}}},
	}}
	s := tl.sample(0.5)
	if s.displayIndex != 0 || s.zOrder != 1 {
		t.Errorf("stepped values = %d, %d, want 0, 1", s.displayIndex, s.zOrder)
	}
	assertNear(t, "alpha", s.color.Multiplier.A, 0.5)
}

// --- easing ---

func TestParseEasing(t *testing.T) {
	cases := map[string]Easing{
		"":            EaseLinear,
		"step":        EaseStep,
		"in-out_Quad": EaseInOutQuad,
		"OutBounce":   EaseOutBounce,
	}
	for name, want := range cases {
		got, ok := ParseEasing(name)
		if !ok || got != want {
			t.Errorf("ParseEasing(%q) = %v, %v; want %v", name, got, ok, want)
		}
	}
	if _, ok := ParseEasing("wobble"); ok {
		t.Error("ParseEasing(wobble) ok")
	}
}

func TestEasingApply(t *testing.T) {
	assertNear(t, "linear", EaseLinear.Apply(0.5), 0.5)
	assertNearTol(t, "inQuad", EaseInQuad.Apply(0.5), 0.25, 1e-6)
	assertNear(t, "step", EaseStep.Apply(0.999), 0)
	assertNear(t, "clamp low", EaseOutBack.Apply(-1), 0)
	assertNear(t, "clamp high", EaseOutBack.Apply(2), 1)
}
