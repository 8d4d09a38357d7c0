package bones

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// frameStats holds per-frame timing and update counts. Only populated when
// the factory is in debug mode.
type frameStats struct {
	pose     time.Duration
	slotTime time.Duration
	bones    int
	slots    int
}

// debugLogFrame logs timing and update counts at debug level.
func debugLogFrame(a *Armature, stats frameStats) {
	a.log.Debug("frame",
		zap.Duration("pose", stats.pose),
		zap.Duration("slots", stats.slotTime),
		zap.Int("bonesUpdated", stats.bones),
		zap.Int("slotCount", stats.slots),
		zap.Int("frameErrors", len(a.frameErrors)))
}

// debugCheckDisposed panics with a descriptive message when a disposed
// armature is mutated. Only called in debug mode.
func debugCheckDisposed(a *Armature, op string) {
	if a.disposed || a.disposeRequested {
		panic(fmt.Sprintf("bones debug: %s on disposed armature %q (id %s)", op, a.data.Name, a.id))
	}
}

// debugMaxNesting is the child-armature nesting depth above which a warning
// is logged.
const debugMaxNesting = 8

// debugCheckNesting measures the hosting chain through a, counting hosts
// above it and the deepest nested child below it. Factories build children
// before their hosts, so both directions are needed.
func debugCheckNesting(a *Armature) {
	depth := nestedDepth(a)
	for p := a; p != nil && p.parentSlot != nil; p = p.parentSlot.armature {
		depth++
	}
	if depth > debugMaxNesting {
		a.log.Warn("child armature nesting is deep",
			zap.Int("depth", depth), zap.Int("threshold", debugMaxNesting))
	}
}

func nestedDepth(a *Armature) int {
	deepest := 0
	for i := range a.slots {
		for _, c := range a.slots[i].children {
			if c != nil {
				deepest = max(deepest, 1+nestedDepth(c))
			}
		}
	}
	return deepest
}

// debugMaxBones is the bone count above which a warning is logged at build.
const debugMaxBones = 512

func debugCheckBoneCount(a *Armature) {
	if len(a.bones) > debugMaxBones {
		a.log.Warn("armature has many bones",
			zap.Int("bones", len(a.bones)), zap.Int("threshold", debugMaxBones))
	}
}
