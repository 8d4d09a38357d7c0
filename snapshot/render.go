// Package snapshot rasterises armature poses into images without a GPU,
// for thumbnails, server-side previews and regression fixtures.
package snapshot

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/phanxgames/bones"
)

// Options controls how a pose is drawn.
type Options struct {
	Width, Height int

	// Fit scales and centers the pose bounds into the canvas, leaving
	// Padding pixels on every side. Otherwise the armature origin sits at
	// Origin (canvas center when zero) with scale Zoom (1 when zero).
	Fit     bool
	Padding float64
	// Bounds replaces the pose bounds when fitting. Sequence sets it so
	// every frame shares one view.
	Bounds  bones.Rect
	Origin  bones.Vec2
	Zoom    float64

	// Supersample renders at this multiple of the output size and scales
	// down. Values below 2 disable it.
	Supersample int

	Background color.Color

	// Regions maps texture region names to images. Image displays without a
	// region image are drawn as RegionSize outlines.
	Regions    map[string]image.Image
	RegionSize float64

	Bones         bool
	BoundingBoxes bool
	Meshes        bool
	Images        bool

	BoneColor  color.NRGBA
	BoxColor   color.NRGBA
	MeshColor  color.NRGBA
	ImageColor color.NRGBA
	LineWidth  float64
}

// DefaultOptions draws every layer on a transparent 256x256 canvas.
func DefaultOptions() Options {
	return Options{
		Width:         256,
		Height:        256,
		Fit:           true,
		Padding:       8,
		Supersample:   2,
		RegionSize:    16,
		Bones:         true,
		BoundingBoxes: true,
		Meshes:        true,
		Images:        true,
		BoneColor:     color.NRGBA{R: 0x00, G: 0xff, B: 0xff, A: 0xff},
		BoxColor:      color.NRGBA{R: 0xff, G: 0x40, B: 0x40, A: 0xff},
		MeshColor:     color.NRGBA{R: 0xa0, G: 0xa0, B: 0xff, A: 0xc0},
		ImageColor:    color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		LineWidth:     1.5,
	}
}

// Render draws p and returns the image.
func Render(p *bones.Pose, opts Options) *image.RGBA {
	if opts.Width <= 0 || opts.Height <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}
	ss := max(opts.Supersample, 1)
	r := &renderer{
		opts: opts,
		dst:  image.NewRGBA(image.Rect(0, 0, opts.Width*ss, opts.Height*ss)),
	}
	r.z = vector.NewRasterizer(r.dst.Bounds().Dx(), r.dst.Bounds().Dy())
	r.view = bones.ScaleMatrix(float64(ss), float64(ss)).Multiply(viewMatrix(p, opts))
	r.line = max(opts.LineWidth, 0.5) * float64(ss)
	if opts.Background != nil {
		draw.Draw(r.dst, r.dst.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	}

	r.pose(p)

	if ss == 1 {
		return r.dst
	}
	out := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), r.dst, r.dst.Bounds(), draw.Src, nil)
	return out
}

// Sequence renders poses as frames of one clip. When opts.Fit is set and
// opts.Bounds is empty, all frames are fitted to the union of their bounds.
func Sequence(poses []bones.Pose, opts Options) []image.Image {
	if opts.Fit && opts.Bounds.Width <= 0 && opts.Bounds.Height <= 0 {
		for i := range poses {
			opts.Bounds = union(opts.Bounds, poses[i].Bounds(), i == 0)
		}
	}
	frames := make([]image.Image, len(poses))
	for i := range poses {
		frames[i] = Render(&poses[i], opts)
	}
	return frames
}

func union(a, b bones.Rect, first bool) bones.Rect {
	if first {
		return b
	}
	x0, y0 := math.Min(a.X, b.X), math.Min(a.Y, b.Y)
	x1 := math.Max(a.X+a.Width, b.X+b.Width)
	y1 := math.Max(a.Y+a.Height, b.Y+b.Height)
	return bones.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// viewMatrix maps armature space to output pixels.
func viewMatrix(p *bones.Pose, opts Options) bones.Matrix {
	w, h := float64(opts.Width), float64(opts.Height)
	if opts.Fit {
		b := opts.Bounds
		if b.Width <= 0 && b.Height <= 0 {
			b = p.Bounds()
		}
		availW := w - 2*opts.Padding
		availH := h - 2*opts.Padding
		s := 1.0
		if b.Width > 0 && b.Height > 0 {
			s = math.Min(availW/b.Width, availH/b.Height)
		} else if b.Width > 0 {
			s = availW / b.Width
		} else if b.Height > 0 {
			s = availH / b.Height
		}
		if s <= 0 || math.IsInf(s, 0) {
			s = 1
		}
		cx, cy := b.X+b.Width/2, b.Y+b.Height/2
		return bones.TranslateMatrix(w/2, h/2).
			Multiply(bones.ScaleMatrix(s, s)).
			Multiply(bones.TranslateMatrix(-cx, -cy))
	}
	ox, oy := opts.Origin.X, opts.Origin.Y
	if opts.Origin == (bones.Vec2{}) {
		ox, oy = w/2, h/2
	}
	zoom := opts.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return bones.TranslateMatrix(ox, oy).Multiply(bones.ScaleMatrix(zoom, zoom))
}

type renderer struct {
	opts Options
	dst  *image.RGBA
	z    *vector.Rasterizer
	view bones.Matrix
	line float64
}

func (r *renderer) pose(p *bones.Pose) {
	for i := range p.Slots {
		s := &p.Slots[i]
		switch s.Type {
		case bones.DisplayImage:
			if r.opts.Images {
				r.image(s)
			}
		case bones.DisplayMesh:
			if r.opts.Meshes {
				r.mesh(s)
			}
		case bones.DisplayBoundingBox:
			if r.opts.BoundingBoxes && len(s.BoundingBox) > 1 {
				r.outline(s.BoundingBox, tint(r.opts.BoxColor, s.Color))
			}
		case bones.DisplayArmature:
			if s.Child != nil {
				r.pose(s.Child)
			}
		}
	}
	if r.opts.Bones {
		for _, b := range p.Bones {
			r.bone(b)
		}
	}
}

func (r *renderer) image(s *bones.SlotPose) {
	if tex, ok := r.opts.Regions[s.Region]; ok && tex != nil {
		sb := tex.Bounds()
		w, h := float64(sb.Dx()), float64(sb.Dy())
		m := r.view.Multiply(s.World).
			Multiply(bones.TranslateMatrix(-s.Pivot.X*w-float64(sb.Min.X), -s.Pivot.Y*h-float64(sb.Min.Y)))
		var dopts *draw.Options
		if a := s.Color.Normalized().Multiplier.A; a < 1 {
			dopts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: to8(a)})}
		}
		draw.BiLinear.Transform(r.dst, aff3(m), tex, sb, draw.Over, dopts)
		return
	}
	size := r.opts.RegionSize
	if size <= 0 {
		return
	}
	x0, y0 := -s.Pivot.X*size, -s.Pivot.Y*size
	quad := make([]bones.Vec2, 4)
	for i, c := range [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}} {
		x, y := s.World.TransformPoint(x0+c[0]*size, y0+c[1]*size)
		quad[i] = bones.Vec2{X: x, Y: y}
	}
	r.outline(quad, tint(r.opts.ImageColor, s.Color))
}

func (r *renderer) mesh(s *bones.SlotPose) {
	col := tint(r.opts.MeshColor, s.Color)
	for t := 0; t+2 < len(s.Indices); t += 3 {
		i0, i1, i2 := int(s.Indices[t]), int(s.Indices[t+1]), int(s.Indices[t+2])
		if i0 >= len(s.Vertices) || i1 >= len(s.Vertices) || i2 >= len(s.Vertices) {
			continue
		}
		r.begin()
		r.moveTo(s.Vertices[i0])
		r.lineTo(s.Vertices[i1])
		r.lineTo(s.Vertices[i2])
		r.z.ClosePath()
		r.fill(col)
	}
}

func (r *renderer) bone(b bones.BonePose) {
	col := r.opts.BoneColor
	ox, oy := b.World.Tx, b.World.Ty
	if b.Length > 0 {
		tx, ty := b.World.TransformPoint(b.Length, 0)
		// A thin kite from origin to tip.
		nx, ny := b.World.TransformVector(0, 1)
		n := math.Hypot(nx, ny)
		if n > 0 {
			w := b.Length * 0.1
			nx, ny = nx/n*w, ny/n*w
		}
		mx, my := b.World.TransformPoint(b.Length*0.2, 0)
		r.begin()
		r.moveTo(bones.Vec2{X: ox, Y: oy})
		r.lineTo(bones.Vec2{X: mx + nx, Y: my + ny})
		r.lineTo(bones.Vec2{X: tx, Y: ty})
		r.lineTo(bones.Vec2{X: mx - nx, Y: my - ny})
		r.z.ClosePath()
		r.fill(col)
	}
	r.dot(ox, oy, r.line*1.5, col)
}

// outline strokes the closed polygon pts given in armature space.
func (r *renderer) outline(pts []bones.Vec2, col color.NRGBA) {
	r.begin()
	for i := range pts {
		a := r.toPixel(pts[i])
		b := r.toPixel(pts[(i+1)%len(pts)])
		r.segment(a, b)
	}
	r.fill(col)
}

// segment adds a stroke of width r.line between two pixel-space points.
func (r *renderer) segment(a, b bones.Vec2) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	hx, hy := -dy/l*r.line/2, dx/l*r.line/2
	r.z.MoveTo(float32(a.X+hx), float32(a.Y+hy))
	r.z.LineTo(float32(b.X+hx), float32(b.Y+hy))
	r.z.LineTo(float32(b.X-hx), float32(b.Y-hy))
	r.z.LineTo(float32(a.X-hx), float32(a.Y-hy))
	r.z.ClosePath()
}

// dot fills a circle of pixel radius rad centered on an armature-space point.
func (r *renderer) dot(x, y, rad float64, col color.NRGBA) {
	c := r.toPixel(bones.Vec2{X: x, Y: y})
	const segments = 12
	r.begin()
	for i := 0; i <= segments; i++ {
		s, co := math.Sincos(2 * math.Pi * float64(i) / segments)
		px, py := float32(c.X+co*rad), float32(c.Y+s*rad)
		if i == 0 {
			r.z.MoveTo(px, py)
		} else {
			r.z.LineTo(px, py)
		}
	}
	r.z.ClosePath()
	r.fill(col)
}

func (r *renderer) begin() {
	b := r.dst.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
}

func (r *renderer) toPixel(v bones.Vec2) bones.Vec2 {
	x, y := r.view.TransformPoint(v.X, v.Y)
	return bones.Vec2{X: x, Y: y}
}

func (r *renderer) moveTo(v bones.Vec2) {
	p := r.toPixel(v)
	r.z.MoveTo(float32(p.X), float32(p.Y))
}

func (r *renderer) lineTo(v bones.Vec2) {
	p := r.toPixel(v)
	r.z.LineTo(float32(p.X), float32(p.Y))
}

func (r *renderer) fill(col color.NRGBA) {
	if col.A == 0 {
		return
	}
	r.z.Draw(r.dst, r.dst.Bounds(), image.NewUniform(col), image.Point{})
}

// tint applies a slot color transform to a base color. A zero transform
// leaves the base untouched.
func tint(base color.NRGBA, ct bones.ColorTransform) color.NRGBA {
	c := ct.Normalized().Apply(bones.Color{
		R: float64(base.R) / 255,
		G: float64(base.G) / 255,
		B: float64(base.B) / 255,
		A: float64(base.A) / 255,
	})
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func aff3(m bones.Matrix) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.Tx, m.B, m.D, m.Ty}
}
