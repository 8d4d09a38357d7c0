package ebitenbind

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/bones"
)

var (
	debugBoneColor = [4]float32{0, 1, 1, 1}
	debugBoxColor  = [4]float32{1, 0.25, 0.25, 1}
)

var whitePixelImage *ebiten.Image

// ensureWhitePixel returns a 1x1 white image used for untextured overlays.
func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
	return whitePixelImage
}

// appendDebug adds bone and bounding box outlines for a and its active
// children.
func (r *Renderer) appendDebug(a *bones.Armature, view bones.Matrix) {
	if a.IsDisposed() {
		return
	}
	width := r.debug.LineWidth
	if width <= 0 {
		width = 1
	}
	if r.debug.BoundingBoxes {
		for _, s := range a.DrawOrder() {
			pts := s.BoundingBoxVertices()
			for i := range pts {
				p0, p1 := pts[i], pts[(i+1)%len(pts)]
				r.debugLine(view, p0.X, p0.Y, p1.X, p1.Y, width, debugBoxColor)
			}
		}
	}
	if r.debug.Bones {
		for _, b := range a.Bones() {
			x0, y0 := b.WorldPosition()
			x1, y1 := b.TipPosition()
			if b.Length() == 0 {
				x1, y1 = b.LocalToWorld(width*2, 0)
			}
			r.debugLine(view, x0, y0, x1, y1, width, debugBoneColor)
		}
	}
	for _, s := range a.Slots() {
		if c := s.ChildArmature(); c != nil {
			r.appendDebug(c, view)
		}
	}
}

// debugLine appends a screen-space quad of the given width between two
// armature-space points.
func (r *Renderer) debugLine(view bones.Matrix, x0, y0, x1, y1, width float64, c [4]float32) {
	ax, ay := view.TransformPoint(x0, y0)
	bx, by := view.TransformPoint(x1, y1)
	dx, dy := bx-ax, by-ay
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	base := uint32(len(r.dbgVerts))
	for _, p := range [4][2]float64{{ax + nx, ay + ny}, {bx + nx, by + ny}, {ax - nx, ay - ny}, {bx - nx, by - ny}} {
		r.dbgVerts = append(r.dbgVerts, ebiten.Vertex{
			DstX: float32(p[0]), DstY: float32(p[1]),
			SrcX: 0.5, SrcY: 0.5,
			ColorR: c[0], ColorG: c[1], ColorB: c[2], ColorA: c[3],
		})
	}
	r.dbgInds = append(r.dbgInds, base+0, base+1, base+2, base+1, base+3, base+2)
}

func (r *Renderer) flushDebug(dst triangleTarget) {
	if len(r.dbgVerts) > 0 {
		var op ebiten.DrawTrianglesOptions
		op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
		dst.DrawTriangles32(r.dbgVerts, r.dbgInds, ensureWhitePixel(), &op)
		r.stats.DrawCalls++
		r.stats.Triangles += len(r.dbgInds) / 3
	}
	r.dbgVerts = r.dbgVerts[:0]
	r.dbgInds = r.dbgInds[:0]
}
