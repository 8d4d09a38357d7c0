// Package ebitenbind draws bones armatures with Ebitengine.
//
// A Renderer hands out per-armature proxies. Pass one to
// bones.Factory.BuildArmature and the armature's slots get bindings that
// resolve atlas regions and cache placement; Renderer.Draw then submits every
// live armature in slot draw order, coalescing consecutive sprites that share
// an atlas page and blend mode into one DrawTriangles32 call.
package ebitenbind

import (
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/phanxgames/bones"
)

// Stats describes the last Draw call.
type Stats struct {
	DrawCalls int
	Sprites   int
	Meshes    int
	Triangles int
}

// DebugOptions selects the overlays drawn after the armatures.
type DebugOptions struct {
	Bones         bool
	BoundingBoxes bool
	LineWidth     float64 // screen pixels, 1 when zero
}

// Renderer draws armatures built with its proxies.
type Renderer struct {
	atlas   *Atlas
	log     *zap.Logger
	debug   DebugOptions
	onEvent func(bones.AnimationEvent)

	roots []*bones.Armature
	stats Stats

	verts    []ebiten.Vertex
	inds     []uint32
	key      batchKey
	inRun    bool
	dbgVerts []ebiten.Vertex
	dbgInds  []uint32
}

// batchKey groups sprites that can share one draw call.
type batchKey struct {
	page  uint16
	blend bones.BlendMode
}

// triangleTarget is the subset of *ebiten.Image the renderer draws into.
type triangleTarget interface {
	DrawTriangles32(vertices []ebiten.Vertex, indices []uint32, img *ebiten.Image, options *ebiten.DrawTrianglesOptions)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for missing regions.
func WithLogger(log *zap.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithDebug enables debug overlays.
func WithDebug(d DebugOptions) Option {
	return func(r *Renderer) { r.debug = d }
}

// WithEventHandler receives every animation event of armatures built with
// the renderer's proxies, children included.
func WithEventHandler(fn func(bones.AnimationEvent)) Option {
	return func(r *Renderer) { r.onEvent = fn }
}

// NewRenderer returns a renderer sampling textures from atlas. A nil atlas
// draws every region as the magenta placeholder.
func NewRenderer(atlas *Atlas, opts ...Option) *Renderer {
	r := &Renderer{atlas: atlas, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Proxy returns a new host proxy for one armature.
func (r *Renderer) Proxy() *Proxy {
	return &Proxy{renderer: r}
}

// Armatures returns the live top-level armatures in creation order.
func (r *Renderer) Armatures() []*bones.Armature {
	return slices.Clone(r.roots)
}

// Stats returns counters from the last Draw.
func (r *Renderer) Stats() Stats { return r.stats }

// SetDebug replaces the debug overlay options.
func (r *Renderer) SetDebug(d DebugOptions) { r.debug = d }

// Draw submits every live armature to dst. view maps armature space to
// screen space.
func (r *Renderer) Draw(dst *ebiten.Image, view ebiten.GeoM) {
	r.draw(dst, Matrix(view))
}

func (r *Renderer) draw(dst triangleTarget, view bones.Matrix) {
	r.stats = Stats{}
	for _, a := range r.roots {
		r.drawArmature(dst, a, view)
	}
	r.flush(dst)
	if r.debug.Bones || r.debug.BoundingBoxes {
		for _, a := range r.roots {
			r.appendDebug(a, view)
		}
		r.flushDebug(dst)
	}
}

func (r *Renderer) drawArmature(dst triangleTarget, a *bones.Armature, view bones.Matrix) {
	if a.IsDisposed() {
		return
	}
	for _, s := range a.DrawOrder() {
		typ, ok := s.DisplayType()
		if !ok {
			continue
		}
		switch typ {
		case bones.DisplayImage:
			if b, ok := s.Binding().(*SlotBinding); ok {
				r.appendSprite(dst, s, b, view)
			}
		case bones.DisplayMesh:
			if b, ok := s.Binding().(*SlotBinding); ok {
				r.flush(dst)
				r.drawMesh(dst, s, b, view)
			}
		case bones.DisplayArmature:
			if c := s.ChildArmature(); c != nil {
				r.drawArmature(dst, c, view)
			}
		}
	}
}

// appendSprite adds one region quad to the current batch, flushing first
// when the page or blend mode changes.
func (r *Renderer) appendSprite(dst triangleTarget, s *bones.Slot, b *SlotBinding, view bones.Matrix) {
	key := batchKey{page: b.region.Page, blend: s.BlendMode()}
	if r.inRun && key != r.key {
		r.flush(dst)
	}
	r.key = key
	r.inRun = true
	r.stats.Sprites++

	reg := b.region
	m := view.Multiply(b.placement)
	w, h := float64(reg.Width), float64(reg.Height)
	lx := [4]float64{0, w, 0, w}
	ly := [4]float64{0, 0, h, h}

	var sx, sy [4]float32
	rx, ry := float32(reg.X), float32(reg.Y)
	rw, rh := float32(reg.Width), float32(reg.Height)
	if reg.Rotated {
		sx = [4]float32{rx + rh, rx + rh, rx, rx}
		sy = [4]float32{ry, ry + rw, ry, ry + rw}
	} else {
		sx = [4]float32{rx, rx + rw, rx, rx + rw}
		sy = [4]float32{ry, ry, ry + rh, ry + rh}
	}

	base := uint32(len(r.verts))
	for i := 0; i < 4; i++ {
		x, y := m.TransformPoint(lx[i], ly[i])
		r.verts = append(r.verts, ebiten.Vertex{
			DstX:   float32(x),
			DstY:   float32(y),
			SrcX:   sx[i],
			SrcY:   sy[i],
			ColorR: b.color[0],
			ColorG: b.color[1],
			ColorB: b.color[2],
			ColorA: b.color[3],
		})
	}
	r.inds = append(r.inds,
		base+0, base+1, base+2,
		base+1, base+3, base+2,
	)
}

// flush submits the accumulated sprite batch.
func (r *Renderer) flush(dst triangleTarget) {
	defer func() {
		r.verts = r.verts[:0]
		r.inds = r.inds[:0]
		r.inRun = false
	}()
	if len(r.verts) == 0 {
		return
	}
	page := r.atlas.page(TextureRegion{Page: r.key.page})
	if page == nil {
		return
	}
	var op ebiten.DrawTrianglesOptions
	op.Blend = Blend(r.key.blend)
	op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	dst.DrawTriangles32(r.verts, r.inds, page, &op)
	r.stats.DrawCalls++
	r.stats.Triangles += len(r.inds) / 3
}

// drawMesh submits a mesh display in its own draw call. Vertices come from
// the slot (already deformed into armature space); UVs map onto the region.
func (r *Renderer) drawMesh(dst triangleTarget, s *bones.Slot, b *SlotBinding, view bones.Matrix) {
	verts, uvs, idx := s.MeshVertices(), s.MeshUVs(), s.MeshIndices()
	if len(verts) == 0 || len(idx) == 0 {
		return
	}
	page := r.atlas.page(b.region)
	if page == nil {
		return
	}
	reg := b.region
	b.meshVerts = b.meshVerts[:0]
	for i, v := range verts {
		x, y := view.TransformPoint(v.X, v.Y)
		var u, w float64
		if i < len(uvs) {
			u, w = uvs[i].X, uvs[i].Y
		}
		var srcX, srcY float32
		if reg.Rotated {
			srcX = float32(reg.X) + float32(1-w)*float32(reg.Height)
			srcY = float32(reg.Y) + float32(u)*float32(reg.Width)
		} else {
			srcX = float32(reg.X) + float32(u)*float32(reg.Width)
			srcY = float32(reg.Y) + float32(w)*float32(reg.Height)
		}
		b.meshVerts = append(b.meshVerts, ebiten.Vertex{
			DstX:   float32(x),
			DstY:   float32(y),
			SrcX:   srcX,
			SrcY:   srcY,
			ColorR: b.color[0],
			ColorG: b.color[1],
			ColorB: b.color[2],
			ColorA: b.color[3],
		})
	}
	b.meshInds = b.meshInds[:0]
	for _, i := range idx {
		b.meshInds = append(b.meshInds, uint32(i))
	}

	var op ebiten.DrawTrianglesOptions
	op.Blend = Blend(s.BlendMode())
	op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	dst.DrawTriangles32(b.meshVerts, b.meshInds, page, &op)
	r.stats.DrawCalls++
	r.stats.Meshes++
	r.stats.Triangles += len(b.meshInds) / 3
}

func (r *Renderer) addRoot(a *bones.Armature) {
	r.roots = append(r.roots, a)
}

func (r *Renderer) removeRoot(a *bones.Armature) {
	if i := slices.Index(r.roots, a); i >= 0 {
		r.roots = slices.Delete(r.roots, i, i+1)
	}
}
