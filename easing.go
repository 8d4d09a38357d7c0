package bones

import (
	"strings"

	"github.com/tanema/gween/ease"
)

// Easing selects the curve used between a keyframe and the next one.
type Easing uint8

const (
	EaseLinear Easing = iota
	EaseStep          // hold the keyframe value until the next keyframe
	EaseInQuad
	EaseOutQuad
	EaseInOutQuad
	EaseInCubic
	EaseOutCubic
	EaseInOutCubic
	EaseInSine
	EaseOutSine
	EaseInOutSine
	EaseInBack
	EaseOutBack
	EaseInOutBack
	EaseOutBounce
)

// easeFuncs maps every tweening Easing to its gween curve. EaseStep has none.
var easeFuncs = map[Easing]ease.TweenFunc{
	EaseLinear:     ease.Linear,
	EaseInQuad:     ease.InQuad,
	EaseOutQuad:    ease.OutQuad,
	EaseInOutQuad:  ease.InOutQuad,
	EaseInCubic:    ease.InCubic,
	EaseOutCubic:   ease.OutCubic,
	EaseInOutCubic: ease.InOutCubic,
	EaseInSine:     ease.InSine,
	EaseOutSine:    ease.OutSine,
	EaseInOutSine:  ease.InOutSine,
	EaseInBack:     ease.InBack,
	EaseOutBack:    ease.OutBack,
	EaseInOutBack:  ease.InOutBack,
	EaseOutBounce:  ease.OutBounce,
}

var easingNames = map[string]Easing{
	"":           EaseLinear,
	"linear":     EaseLinear,
	"step":       EaseStep,
	"inquad":     EaseInQuad,
	"outquad":    EaseOutQuad,
	"inoutquad":  EaseInOutQuad,
	"incubic":    EaseInCubic,
	"outcubic":   EaseOutCubic,
	"inoutcubic": EaseInOutCubic,
	"insine":     EaseInSine,
	"outsine":    EaseOutSine,
	"inoutsine":  EaseInOutSine,
	"inback":     EaseInBack,
	"outback":    EaseOutBack,
	"inoutback":  EaseInOutBack,
	"outbounce":  EaseOutBounce,
}

// ParseEasing resolves an easing name such as "linear", "step" or
// "inOutQuad" (case-insensitive, '-' and '_' ignored).
func ParseEasing(name string) (Easing, bool) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(name))
	e, ok := easingNames[key]
	return e, ok
}

// Apply maps linear progress p in [0, 1] to eased progress. EaseStep yields 0
// until p reaches 1.
func (e Easing) Apply(p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	if e == EaseStep {
		return 0
	}
	fn, ok := easeFuncs[e]
	if !ok {
		return p
	}
	return float64(fn(float32(p), 0, 1, 1))
}
