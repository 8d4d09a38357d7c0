package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/bones"
)

func plainOptions(w, h int) Options {
	opts := DefaultOptions()
	opts.Width, opts.Height = w, h
	opts.Fit = false
	opts.Supersample = 1
	return opts
}

func alphaAt(img *image.RGBA, x, y int) uint8 {
	return img.RGBAAt(x, y).A
}

func TestRenderBoneAtOrigin(t *testing.T) {
	p := &bones.Pose{Bones: []bones.BonePose{{Name: "root", Length: 20, World: bones.IdentityMatrix}}}
	img := Render(p, plainOptions(64, 64))
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	assert.Greater(t, alphaAt(img, 32, 32), uint8(0xf0), "origin dot")
	assert.NotZero(t, alphaAt(img, 45, 32), "bone body toward the tip")
	assert.Zero(t, alphaAt(img, 32, 50))
	assert.Zero(t, alphaAt(img, 10, 10))
}

func TestRenderLayersCanBeDisabled(t *testing.T) {
	p := &bones.Pose{
		Bones: []bones.BonePose{{Name: "root", Length: 20, World: bones.IdentityMatrix}},
		Slots: []bones.SlotPose{{
			Name: "hit", Type: bones.DisplayBoundingBox, Color: bones.IdentityColorTransform,
			BoundingBox: []bones.Vec2{{X: -10, Y: -10}, {X: 10, Y: -10}, {X: 10, Y: 10}, {X: -10, Y: 10}},
		}},
	}
	opts := plainOptions(64, 64)
	opts.Bones, opts.BoundingBoxes = false, false
	img := Render(p, opts)
	for _, px := range img.Pix {
		require.Zero(t, px)
	}

	opts.BoundingBoxes = true
	img = Render(p, opts)
	assert.NotZero(t, alphaAt(img, 22, 32), "left edge of the box")
	assert.Zero(t, alphaAt(img, 32, 32), "box interior is not filled")
}

func TestRenderMeshAndRegion(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(red.Pix); i += 4 {
		copy(red.Pix[i:], []uint8{0xff, 0, 0, 0xff})
	}
	p := &bones.Pose{Slots: []bones.SlotPose{
		{
			Name: "tri", Type: bones.DisplayMesh, Color: bones.IdentityColorTransform,
			Vertices: []bones.Vec2{{X: -30, Y: -30}, {X: 0, Y: -30}, {X: -30, Y: 0}},
			Indices:  []uint16{0, 1, 2},
		},
		{
			Name: "gem", Type: bones.DisplayImage, Region: "red", Pivot: bones.Vec2{X: 0.5, Y: 0.5},
			World: bones.IdentityMatrix, Color: bones.IdentityColorTransform,
		},
	}}
	opts := plainOptions(64, 64)
	opts.Bones = false
	opts.Regions = map[string]image.Image{"red": red}
	img := Render(p, opts)

	mesh := img.RGBAAt(6, 6)
	assert.NotZero(t, mesh.A)
	assert.Greater(t, mesh.B, mesh.R, "mesh uses the mesh color")

	gem := img.RGBAAt(31, 31)
	assert.Greater(t, gem.R, uint8(0xf0))
	assert.Greater(t, gem.A, uint8(0xf0))
	assert.Zero(t, gem.G)
	assert.Zero(t, alphaAt(img, 40, 40))
}

func TestRenderRecursesIntoChildPoses(t *testing.T) {
	child := &bones.Pose{Bones: []bones.BonePose{{Name: "blade", World: bones.TranslateMatrix(-20, 0)}}}
	p := &bones.Pose{Slots: []bones.SlotPose{{Name: "weapon", Type: bones.DisplayArmature, Child: child}}}
	img := Render(p, plainOptions(64, 64))
	assert.NotZero(t, alphaAt(img, 12, 32))
}

func TestViewMatrixFitsBounds(t *testing.T) {
	p := &bones.Pose{Slots: []bones.SlotPose{{
		Type:        bones.DisplayBoundingBox,
		BoundingBox: []bones.Vec2{{X: 100, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 50}, {X: 100, Y: 50}},
	}}}
	opts := Options{Width: 120, Height: 120, Fit: true, Padding: 10}
	m := viewMatrix(p, opts)

	x0, y0 := m.TransformPoint(100, 0)
	x1, y1 := m.TransformPoint(300, 50)
	assert.InDelta(t, 10, x0, 1e-9)
	assert.InDelta(t, 110, x1, 1e-9)
	assert.InDelta(t, 60, (y0+y1)/2, 1e-9, "centered vertically")
	assert.InDelta(t, 25, y1-y0, 1e-9, "aspect ratio kept")
}

func TestSequenceSharesOneView(t *testing.T) {
	box := func(x float64) bones.Pose {
		return bones.Pose{Slots: []bones.SlotPose{{
			Type:        bones.DisplayBoundingBox,
			BoundingBox: []bones.Vec2{{X: x, Y: 0}, {X: x + 10, Y: 0}, {X: x + 10, Y: 10}, {X: x, Y: 10}},
		}}}
	}
	u := union(bones.Rect{X: 0, Y: 0, Width: 10, Height: 10}, bones.Rect{X: 90, Y: 0, Width: 10, Height: 10}, false)
	assert.Equal(t, bones.Rect{X: 0, Y: 0, Width: 100, Height: 10}, u)

	opts := DefaultOptions()
	opts.Width, opts.Height = 100, 100
	opts.Padding = 0
	opts.Supersample = 1
	frames := Sequence([]bones.Pose{box(0), box(90)}, opts)
	require.Len(t, frames, 2)

	// Fitted separately each box would fill the canvas; fitted together the
	// first stays on the left and the second on the right.
	first, second := frames[0].(*image.RGBA), frames[1].(*image.RGBA)
	assert.NotZero(t, alphaAt(first, 0, 50))
	assert.Zero(t, alphaAt(first, 99, 50))
	assert.NotZero(t, alphaAt(second, 99, 50))
	assert.Zero(t, alphaAt(second, 0, 50))
}

func TestZeroColorTransformDrawsUntinted(t *testing.T) {
	base := color.NRGBA{R: 0x20, G: 0x80, B: 0xe0, A: 0xff}
	assert.Equal(t, base, tint(base, bones.ColorTransform{}))
	assert.Equal(t, base, tint(base, bones.IdentityColorTransform))

	half := bones.IdentityColorTransform
	half.Multiplier.A = 0.5
	assert.Equal(t, uint8(0x80), tint(base, half).A)

	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(red.Pix); i += 4 {
		copy(red.Pix[i:], []uint8{0xff, 0, 0, 0xff})
	}
	p := &bones.Pose{Slots: []bones.SlotPose{{
		Name: "gem", Type: bones.DisplayImage, Region: "red", Pivot: bones.Vec2{X: 0.5, Y: 0.5},
		World: bones.IdentityMatrix,
	}}}
	opts := plainOptions(64, 64)
	opts.Regions = map[string]image.Image{"red": red}
	img := Render(p, opts)
	assert.Greater(t, img.RGBAAt(31, 31).A, uint8(0xf0), "hand-built pose without a color is opaque")
}

func TestEncodeFormats(t *testing.T) {
	img := Render(&bones.Pose{Bones: []bones.BonePose{{Length: 10, World: bones.IdentityMatrix}}}, plainOptions(32, 16))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, FormatWebP))
	decoded, err := nativewebp.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())

	buf.Reset()
	require.NoError(t, Encode(&buf, img, FormatPNG))
	decoded, err = png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())

	buf.Reset()
	require.NoError(t, EncodeAnimation(&buf, []image.Image{img, img}, 40))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("RIFF")))
	assert.Error(t, EncodeAnimation(&buf, nil, 40))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)
	f, err = ParseFormat("webp")
	require.NoError(t, err)
	assert.Equal(t, ".webp", f.Ext())
	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	path := filepath.Join(dir, "frames", "0001.png")
	require.NoError(t, WriteFile(path, img))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	assert.ErrorIs(t, WriteFile(filepath.Join(dir, "x.bmp"), img), ErrUnknownFormat)
}
