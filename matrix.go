package bones

import "math"

// DegenerateEpsilon is the determinant magnitude below which a matrix is
// treated as singular by Invert.
const DegenerateEpsilon = 1e-12

// Matrix is a 2D affine transform.
//
//	| A  C  Tx |
//	| B  D  Ty |
//	| 0  0   1 |
//
// A point (x, y) maps to (A*x + C*y + Tx, B*x + D*y + Ty).
type Matrix struct {
	A, B, C, D, Tx, Ty float64
}

// IdentityMatrix is the identity affine matrix.
var IdentityMatrix = Matrix{A: 1, D: 1}

// TranslateMatrix returns a pure translation.
func TranslateMatrix(x, y float64) Matrix {
	return Matrix{A: 1, D: 1, Tx: x, Ty: y}
}

// ScaleMatrix returns a pure scale.
func ScaleMatrix(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// RotateMatrix returns a pure rotation by r radians.
func RotateMatrix(r float64) Matrix {
	sin, cos := math.Sincos(r)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Multiply returns m * child: the child transform applied first, then m.
// This is how a parent's world matrix is combined with a child's local one.
func (m Matrix) Multiply(child Matrix) Matrix {
	return Matrix{
		A:  m.A*child.A + m.C*child.B,
		B:  m.B*child.A + m.D*child.B,
		C:  m.A*child.C + m.C*child.D,
		D:  m.B*child.C + m.D*child.D,
		Tx: m.A*child.Tx + m.C*child.Ty + m.Tx,
		Ty: m.B*child.Tx + m.D*child.Ty + m.Ty,
	}
}

// Compose sets m = m ∘ other in place.
func (m *Matrix) Compose(other Matrix) {
	*m = m.Multiply(other)
}

// Determinant returns A*D - B*C.
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Invert returns the inverse of m. If m is near-singular it returns the
// identity matrix together with ErrDegenerateTransform.
func (m Matrix) Invert() (Matrix, error) {
	det := m.Determinant()
	if det > -DegenerateEpsilon && det < DegenerateEpsilon {
		return IdentityMatrix, ErrDegenerateTransform
	}
	invDet := 1.0 / det
	a := m.D * invDet
	b := -m.B * invDet
	c := -m.C * invDet
	d := m.A * invDet
	return Matrix{
		A: a, B: b, C: c, D: d,
		Tx: -(a*m.Tx + c*m.Ty),
		Ty: -(b*m.Tx + d*m.Ty),
	}, nil
}

// TransformPoint maps a point from the matrix's local space to its parent space.
func (m Matrix) TransformPoint(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.Tx, m.B*x + m.D*y + m.Ty
}

// TransformVector maps a direction, ignoring translation.
func (m Matrix) TransformVector(x, y float64) (float64, float64) {
	return m.A*x + m.C*y, m.B*x + m.D*y
}

// IsIdentity reports whether m is exactly the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == IdentityMatrix
}

// ApproxEqual reports whether every coefficient of m is within tol of o.
func (m Matrix) ApproxEqual(o Matrix, tol float64) bool {
	return math.Abs(m.A-o.A) <= tol && math.Abs(m.B-o.B) <= tol &&
		math.Abs(m.C-o.C) <= tol && math.Abs(m.D-o.D) <= tol &&
		math.Abs(m.Tx-o.Tx) <= tol && math.Abs(m.Ty-o.Ty) <= tol
}

// Array returns the coefficients as [a, b, c, d, tx, ty].
func (m Matrix) Array() [6]float64 {
	return [6]float64{m.A, m.B, m.C, m.D, m.Tx, m.Ty}
}

// Decompose splits m into translation, rotation, skew and scale. A negative
// determinant is attributed to ScaleY. Matrix(Decompose(m)) reproduces m.
func (m Matrix) Decompose() Transform {
	t := Transform{X: m.Tx, Y: m.Ty}
	t.ScaleX = math.Hypot(m.A, m.B)
	t.Rotation = math.Atan2(m.B, m.A)
	t.ScaleY = math.Hypot(m.C, m.D)
	rs := math.Atan2(-m.C, m.D)
	if m.Determinant() < 0 {
		t.ScaleY = -t.ScaleY
		rs = math.Atan2(m.C, -m.D)
	}
	t.Skew = NormalizeRadian(rs - t.Rotation)
	return t
}

// worldAABB computes the axis-aligned bounding box of the local rectangle
// (x, y, w, h) after transformation by m.
func worldAABB(m Matrix, x, y, w, h float64) Rect {
	x0, y0 := m.TransformPoint(x, y)
	x1, y1 := m.TransformPoint(x+w, y)
	x2, y2 := m.TransformPoint(x+w, y+h)
	x3, y3 := m.TransformPoint(x, y+h)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
