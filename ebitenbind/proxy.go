package ebitenbind

import (
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/phanxgames/bones"
)

// Proxy connects one armature to a Renderer. Top-level armatures are drawn
// by Renderer.Draw until they are disposed; child armatures are drawn through
// their parent slot.
type Proxy struct {
	renderer *Renderer
	armature *bones.Armature
	child    bool
}

// Armature returns the armature the proxy was created for, or nil before
// the factory finished building it.
func (p *Proxy) Armature() *bones.Armature { return p.armature }

func (p *Proxy) OnCreate(a *bones.Armature) {
	p.armature = a
	if !p.child {
		p.renderer.addRoot(a)
	}
}

func (p *Proxy) OnPoseUpdated(*bones.Armature) {}

func (p *Proxy) OnDisplayChanged(*bones.Slot) {}

func (p *Proxy) OnClear() {
	if p.armature != nil && !p.child {
		p.renderer.removeRoot(p.armature)
	}
	p.armature = nil
}

func (p *Proxy) NewBinding(*bones.Slot) bones.DisplayBinding {
	return &SlotBinding{renderer: p.renderer, color: [4]float32{1, 1, 1, 1}}
}

func (p *Proxy) NewChildProxy(*bones.Slot, string) bones.HostProxy {
	return &Proxy{renderer: p.renderer, child: true}
}

func (p *Proxy) OnAnimationEvent(e bones.AnimationEvent) {
	if p.renderer.onEvent != nil {
		p.renderer.onEvent(e)
	}
}

// SlotBinding caches what the renderer needs for one slot: the resolved
// atlas region, its placement in armature space and the premultiplied tint.
type SlotBinding struct {
	renderer  *Renderer
	region    TextureRegion
	missing   bool
	placement bones.Matrix
	color     [4]float32

	meshVerts []ebiten.Vertex
	meshInds  []uint32
}

// Region returns the resolved atlas region and whether it was found.
func (b *SlotBinding) Region() (TextureRegion, bool) { return b.region, !b.missing }

// Placement maps region pixels to armature space.
func (b *SlotBinding) Placement() bones.Matrix { return b.placement }

// ColorScale returns the premultiplied RGBA tint.
func (b *SlotBinding) ColorScale() [4]float32 { return b.color }

func (b *SlotBinding) UpdateDisplay(s *bones.Slot) {
	typ, ok := s.DisplayType()
	if !ok || (typ != bones.DisplayImage && typ != bones.DisplayMesh) {
		return
	}
	name := s.Region()
	if reg, found := b.renderer.atlas.lookup(name); found {
		b.region, b.missing = reg, false
		return
	}
	b.region, b.missing = magentaRegion(), true
	b.renderer.log.Warn("atlas region not found",
		zap.String("region", name),
		zap.String("slot", s.Name()),
		zap.String("armature", s.Armature().Name()))
}

// UpdateTransform places the region so its pivot sits on the slot origin.
// Trimmed regions keep their authored offset.
func (b *SlotBinding) UpdateTransform(s *bones.Slot) {
	w, h := b.region.Size()
	p := s.Pivot()
	local := bones.TranslateMatrix(-p.X*w+float64(b.region.OffsetX), -p.Y*h+float64(b.region.OffsetY))
	b.placement = s.WorldMatrix().Multiply(local)
}

// UpdateColor caches the slot's global multiplier. Color offsets have no
// ebiten vertex equivalent and are not drawn.
func (b *SlotBinding) UpdateColor(s *bones.Slot) {
	m := s.GlobalColor().Multiplier
	a := float32(clamp01(m.A))
	b.color = [4]float32{
		float32(clamp01(m.R)) * a,
		float32(clamp01(m.G)) * a,
		float32(clamp01(m.B)) * a,
		a,
	}
}

func (b *SlotBinding) Dispose(*bones.Slot) {
	b.meshVerts = nil
	b.meshInds = nil
}

func (a *Atlas) lookup(name string) (TextureRegion, bool) {
	if a == nil {
		return TextureRegion{}, false
	}
	return a.Region(name)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
