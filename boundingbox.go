package bones

import (
	"errors"
	"math"

	"go.uber.org/zap"
)

// ellipseSegments is the number of edges used to outline an ellipse.
const ellipseSegments = 24

// BoundingBox returns the active bounding-box geometry in slot space. ok is
// false when the active display is not a bounding box.
func (s *Slot) BoundingBox() (bb BoundingBoxDef, ok bool) {
	d := s.display()
	if d == nil || d.boundingBox == nil {
		return BoundingBoxDef{}, false
	}
	bb = *d.boundingBox
	bb.Vertices = append([]Vec2(nil), bb.Vertices...)
	return bb, true
}

// BoundingBoxVertices returns the active bounding box outline in world
// space. Ellipses are approximated by a polygon. The result is cached until
// the slot moves or switches display and MUST NOT be mutated.
func (s *Slot) BoundingBoxVertices() []Vec2 {
	d := s.display()
	if d == nil || d.boundingBox == nil {
		return nil
	}
	if s.bbValid {
		return s.bbVerts
	}
	s.bbVerts = appendOutline(s.bbVerts[:0], d.boundingBox)
	for i, v := range s.bbVerts {
		x, y := s.world.TransformPoint(v.X, v.Y)
		s.bbVerts[i] = Vec2{X: x, Y: y}
	}
	s.bbValid = true
	return s.bbVerts
}

// BoundingBoxAABB returns the world-space axis-aligned bounds of the active
// bounding box, or an empty Rect.
func (s *Slot) BoundingBoxAABB() Rect {
	return boundsOf(s.BoundingBoxVertices())
}

// ContainsPoint reports whether the world-space point lies inside the
// active bounding box. It works from pose data alone; nothing needs to be
// rendered.
func (s *Slot) ContainsPoint(x, y float64) bool {
	d := s.display()
	if d == nil || d.boundingBox == nil {
		return false
	}
	inv := s.inverseWorld()
	lx, ly := inv.TransformPoint(x, y)
	return containsLocal(d.boundingBox, lx, ly)
}

// inverseWorld returns the cached inverse world matrix. A degenerate matrix
// yields the identity and is logged once per change.
func (s *Slot) inverseWorld() Matrix {
	if s.invValid {
		return s.inverse
	}
	s.inverse, s.inverseErr = s.world.Invert()
	s.invValid = true
	if errors.Is(s.inverseErr, ErrDegenerateTransform) {
		s.armature.log.Warn("degenerate slot transform",
			zap.String("slot", s.data.name),
			zap.Float64("determinant", s.world.Determinant()))
	}
	return s.inverse
}

// containsLocal tests a slot-space point against bounding box geometry.
// Rectangles and ellipses are centered on the slot origin; polygons use the
// even-odd rule, so concave outlines work.
func containsLocal(bb *BoundingBoxDef, x, y float64) bool {
	switch bb.Type {
	case BoundingBoxRectangle:
		return math.Abs(x) <= bb.Width/2 && math.Abs(y) <= bb.Height/2
	case BoundingBoxEllipse:
		rx, ry := bb.Width/2, bb.Height/2
		if rx <= 0 || ry <= 0 {
			return false
		}
		nx, ny := x/rx, y/ry
		return nx*nx+ny*ny <= 1
	case BoundingBoxPolygon:
		return pointInPolygon(bb.Vertices, x, y)
	}
	return false
}

// pointInPolygon is the even-odd crossing test.
func pointInPolygon(vs []Vec2, x, y float64) bool {
	if len(vs) < 3 {
		return false
	}
	inside := false
	j := len(vs) - 1
	for i := range vs {
		vi, vj := vs[i], vs[j]
		if (vi.Y > y) != (vj.Y > y) {
			cx := vi.X + (y-vi.Y)*(vj.X-vi.X)/(vj.Y-vi.Y)
			if x < cx {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// appendOutline appends the slot-space outline of bb to dst.
func appendOutline(dst []Vec2, bb *BoundingBoxDef) []Vec2 {
	switch bb.Type {
	case BoundingBoxRectangle:
		hw, hh := bb.Width/2, bb.Height/2
		return append(dst,
			Vec2{-hw, -hh}, Vec2{hw, -hh}, Vec2{hw, hh}, Vec2{-hw, hh})
	case BoundingBoxEllipse:
		rx, ry := bb.Width/2, bb.Height/2
		for i := 0; i < ellipseSegments; i++ {
			t := 2 * math.Pi * float64(i) / ellipseSegments
			dst = append(dst, Vec2{rx * math.Cos(t), ry * math.Sin(t)})
		}
		return dst
	case BoundingBoxPolygon:
		return append(dst, bb.Vertices...)
	}
	return dst
}

func boundsOf(vs []Vec2) Rect {
	if len(vs) == 0 {
		return Rect{}
	}
	minX, minY := vs[0].X, vs[0].Y
	maxX, maxY := minX, minY
	for _, v := range vs[1:] {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
