package bones

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the neutral color (no modification when used as a multiplier).
var ColorWhite = Color{1, 1, 1, 1}

// Vec2 is a 2D vector used for positions, offsets and mesh vertices.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// BlendMode selects a compositing operation for a slot. Renderers map it to
// their own blend state.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendErase                     // destination-out (punch transparent holes)
)

// DisplayType identifies what a slot display renders.
type DisplayType uint8

const (
	DisplayImage       DisplayType = iota // a named texture region
	DisplayMesh                           // textured triangles, optionally skinned
	DisplayBoundingBox                    // hit-test geometry, not drawn
	DisplayArmature                       // a nested child armature
)

// String returns the lower-case name of the display type.
func (t DisplayType) String() string {
	switch t {
	case DisplayImage:
		return "image"
	case DisplayMesh:
		return "mesh"
	case DisplayBoundingBox:
		return "boundingBox"
	case DisplayArmature:
		return "armature"
	default:
		return "unknown"
	}
}

// BoundingBoxType selects the geometry of a bounding box display.
type BoundingBoxType uint8

const (
	BoundingBoxRectangle BoundingBoxType = iota // centered Width x Height rectangle
	BoundingBoxEllipse                          // centered ellipse with Width/2, Height/2 radii
	BoundingBoxPolygon                          // arbitrary (possibly concave) polygon
)

// EventType identifies a kind of animation event.
type EventType uint8

const (
	EventStart            EventType = iota // a state started playing
	EventLoopComplete                      // a state finished one loop and keeps playing
	EventComplete                          // a state finished its last loop
	EventFadeInComplete                    // a cross-fade reached full weight
	EventFadeOutComplete                   // a faded-out state was removed
	EventFrame                             // a keyframe event was crossed
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventLoopComplete:
		return "loopComplete"
	case EventComplete:
		return "complete"
	case EventFadeInComplete:
		return "fadeInComplete"
	case EventFadeOutComplete:
		return "fadeOutComplete"
	case EventFrame:
		return "frame"
	default:
		return "unknown"
	}
}
