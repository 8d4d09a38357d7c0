package ebitenbind

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
)

// TextureRegion describes a sub-rectangle within an atlas page.
type TextureRegion struct {
	Page      uint16 // atlas page index
	X, Y      uint16 // top-left corner of the region on the page
	Width     uint16 // stored width (may differ from OriginalW if trimmed)
	Height    uint16 // stored height (may differ from OriginalH if trimmed)
	OriginalW uint16 // untrimmed width as authored
	OriginalH uint16 // untrimmed height as authored
	OffsetX   int16  // trim offset from TexturePacker
	OffsetY   int16
	Rotated   bool // stored 90 degrees clockwise on the page
}

// Size returns the untrimmed size used for pivot placement.
func (r TextureRegion) Size() (float64, float64) {
	w, h := r.OriginalW, r.OriginalH
	if w == 0 || h == 0 {
		w, h = r.Width, r.Height
	}
	return float64(w), float64(h)
}

// Atlas holds atlas page images and named regions.
type Atlas struct {
	Pages   []*ebiten.Image
	regions map[string]TextureRegion
}

// NewAtlas returns an empty atlas over pages. Regions are added with
// SetRegion.
func NewAtlas(pages ...*ebiten.Image) *Atlas {
	return &Atlas{Pages: pages, regions: make(map[string]TextureRegion)}
}

// SetRegion adds or replaces a named region.
func (a *Atlas) SetRegion(name string, r TextureRegion) {
	a.regions[name] = r
}

// Region returns the named region.
func (a *Atlas) Region(name string) (TextureRegion, bool) {
	r, ok := a.regions[name]
	return r, ok
}

// RegionNames returns the region names sorted.
func (a *Atlas) RegionNames() []string {
	names := make([]string, 0, len(a.regions))
	for n := range a.regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// page resolves a region's page image, using the magenta placeholder for
// missing regions.
func (a *Atlas) page(r TextureRegion) *ebiten.Image {
	if r.Page == magentaPlaceholderPage {
		return ensureMagentaImage()
	}
	if a == nil || int(r.Page) >= len(a.Pages) {
		return nil
	}
	return a.Pages[r.Page]
}

// SubImage returns the region's pixels as an ebiten sub-image.
func (a *Atlas) SubImage(r TextureRegion) *ebiten.Image {
	page := a.page(r)
	if page == nil {
		return nil
	}
	return page.SubImage(r.stored()).(*ebiten.Image)
}

// stored returns the region's rectangle on its page.
func (r TextureRegion) stored() image.Rectangle {
	if r.Rotated {
		return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Height), int(r.Y)+int(r.Width))
	}
	return image.Rect(int(r.X), int(r.Y), int(r.X)+int(r.Width), int(r.Y)+int(r.Height))
}

var magentaImage *ebiten.Image

func ensureMagentaImage() *ebiten.Image {
	if magentaImage == nil {
		magentaImage = ebiten.NewImage(1, 1)
		magentaImage.Fill(color.RGBA{R: 255, G: 0, B: 255, A: 255})
	}
	return magentaImage
}

// magentaPlaceholderPage never collides with a real page index.
const magentaPlaceholderPage = 0xFFFF

func magentaRegion() TextureRegion {
	return TextureRegion{Page: magentaPlaceholderPage, Width: 1, Height: 1, OriginalW: 1, OriginalH: 1}
}

// LoadAtlas parses TexturePacker JSON (hash or multi-page array format) and
// associates the given page images.
func LoadAtlas(jsonData []byte, pages []*ebiten.Image) (*Atlas, error) {
	var shape struct {
		Frames   json.RawMessage `json:"frames"`
		Textures json.RawMessage `json:"textures"`
	}
	if err := json.Unmarshal(jsonData, &shape); err != nil {
		return nil, fmt.Errorf("ebitenbind: parse atlas JSON: %w", err)
	}

	atlas := NewAtlas(pages...)
	switch {
	case shape.Textures != nil:
		var textures []jsonTexturePage
		if err := json.Unmarshal(shape.Textures, &textures); err != nil {
			return nil, fmt.Errorf("ebitenbind: parse atlas textures: %w", err)
		}
		for i, tex := range textures {
			for name, f := range tex.Frames {
				atlas.regions[name] = f.region(uint16(i))
			}
		}
	case shape.Frames != nil:
		var frames map[string]jsonFrame
		if err := json.Unmarshal(shape.Frames, &frames); err != nil {
			return nil, fmt.Errorf("ebitenbind: parse atlas frames: %w", err)
		}
		for name, f := range frames {
			atlas.regions[name] = f.region(0)
		}
	default:
		return nil, fmt.Errorf("ebitenbind: atlas JSON has neither \"frames\" nor \"textures\" key")
	}
	return atlas, nil
}

type jsonRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type jsonFrame struct {
	Frame            jsonRect `json:"frame"`
	Rotated          bool     `json:"rotated"`
	SpriteSourceSize jsonRect `json:"spriteSourceSize"`
	SourceSize       jsonSize `json:"sourceSize"`
}

type jsonTexturePage struct {
	Image  string               `json:"image"`
	Frames map[string]jsonFrame `json:"frames"`
}

func (f jsonFrame) region(page uint16) TextureRegion {
	return TextureRegion{
		Page:      page,
		X:         uint16(f.Frame.X),
		Y:         uint16(f.Frame.Y),
		Width:     uint16(f.Frame.W),
		Height:    uint16(f.Frame.H),
		OriginalW: uint16(f.SourceSize.W),
		OriginalH: uint16(f.SourceSize.H),
		OffsetX:   int16(f.SpriteSourceSize.X),
		OffsetY:   int16(f.SpriteSourceSize.Y),
		Rotated:   f.Rotated,
	}
}
