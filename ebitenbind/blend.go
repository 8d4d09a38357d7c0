package ebitenbind

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/bones"
)

// Blend converts a slot blend mode to the ebiten blend state.
func Blend(b bones.BlendMode) ebiten.Blend {
	switch b {
	case bones.BlendAdd:
		return ebiten.BlendLighter
	case bones.BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case bones.BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case bones.BlendErase:
		return ebiten.BlendDestinationOut
	default:
		return ebiten.BlendSourceOver
	}
}

// GeoM converts an affine matrix to an ebiten.GeoM.
func GeoM(m bones.Matrix) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m.A)
	g.SetElement(1, 0, m.B)
	g.SetElement(0, 1, m.C)
	g.SetElement(1, 1, m.D)
	g.SetElement(0, 2, m.Tx)
	g.SetElement(1, 2, m.Ty)
	return g
}

// Matrix converts an ebiten.GeoM back to an affine matrix.
func Matrix(g ebiten.GeoM) bones.Matrix {
	return bones.Matrix{
		A:  g.Element(0, 0),
		B:  g.Element(1, 0),
		C:  g.Element(0, 1),
		D:  g.Element(1, 1),
		Tx: g.Element(0, 2),
		Ty: g.Element(1, 2),
	}
}
