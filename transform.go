package bones

import "math"

// Transform is a decomposed 2D transform. Angles are in radians.
//
// Composition order of Matrix():
//
//	Scale -> Skew -> Rotate -> Translate(X, Y)
type Transform struct {
	X, Y     float64
	Rotation float64
	Skew     float64
	ScaleX   float64
	ScaleY   float64
}

// IdentityTransform has unit scale and no translation, rotation or skew.
var IdentityTransform = Transform{ScaleX: 1, ScaleY: 1}

// Matrix computes the affine matrix for t.
func (t Transform) Matrix() Matrix {
	if t.Rotation == 0 && t.Skew == 0 {
		return Matrix{A: t.ScaleX, D: t.ScaleY, Tx: t.X, Ty: t.Y}
	}
	sinR, cosR := math.Sincos(t.Rotation)
	sinRS, cosRS := math.Sincos(t.Rotation + t.Skew)
	return Matrix{
		A:  cosR * t.ScaleX,
		B:  sinR * t.ScaleX,
		C:  -sinRS * t.ScaleY,
		D:  cosRS * t.ScaleY,
		Tx: t.X,
		Ty: t.Y,
	}
}

// Add layers an offset pose on top of t: translation, rotation and skew add,
// scales multiply.
func (t Transform) Add(o Transform) Transform {
	return Transform{
		X:        t.X + o.X,
		Y:        t.Y + o.Y,
		Rotation: t.Rotation + o.Rotation,
		Skew:     t.Skew + o.Skew,
		ScaleX:   t.ScaleX * o.ScaleX,
		ScaleY:   t.ScaleY * o.ScaleY,
	}
}

// Lerp interpolates from t to o by p in [0, 1]. Translation, skew and scale
// interpolate linearly; rotation takes the shorter angular path.
func (t Transform) Lerp(o Transform, p float64) Transform {
	return Transform{
		X:        t.X + (o.X-t.X)*p,
		Y:        t.Y + (o.Y-t.Y)*p,
		Rotation: LerpAngle(t.Rotation, o.Rotation, p),
		Skew:     LerpAngle(t.Skew, o.Skew, p),
		ScaleX:   t.ScaleX + (o.ScaleX-t.ScaleX)*p,
		ScaleY:   t.ScaleY + (o.ScaleY-t.ScaleY)*p,
	}
}

// ApproxEqual reports whether all components of t are within tol of o.
// Angles are compared modulo 2π.
func (t Transform) ApproxEqual(o Transform, tol float64) bool {
	return math.Abs(t.X-o.X) <= tol && math.Abs(t.Y-o.Y) <= tol &&
		math.Abs(NormalizeRadian(t.Rotation-o.Rotation)) <= tol &&
		math.Abs(NormalizeRadian(t.Skew-o.Skew)) <= tol &&
		math.Abs(t.ScaleX-o.ScaleX) <= tol && math.Abs(t.ScaleY-o.ScaleY) <= tol
}

// NormalizeRadian maps r into (-π, π].
func NormalizeRadian(r float64) float64 {
	r = math.Mod(r+math.Pi, 2*math.Pi)
	if r <= 0 {
		r += 2 * math.Pi
	}
	return r - math.Pi
}

// LerpAngle interpolates between two angles along the shorter arc. The result
// is not normalized, so 170° -> -170° at p=0.5 yields 180°.
func LerpAngle(from, to, p float64) float64 {
	return from + NormalizeRadian(to-from)*p
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
