package bones

// ColorTransform multiplies then offsets each channel:
//
//	out = in*Multiplier + Offset
//
// Offsets are in the same [0, 1] units as Color.
type ColorTransform struct {
	Multiplier Color
	Offset     Color
}

// IdentityColorTransform leaves colors unchanged.
var IdentityColorTransform = ColorTransform{Multiplier: ColorWhite}

// Apply transforms c. The result is not clamped.
func (ct ColorTransform) Apply(c Color) Color {
	return Color{
		R: c.R*ct.Multiplier.R + ct.Offset.R,
		G: c.G*ct.Multiplier.G + ct.Offset.G,
		B: c.B*ct.Multiplier.B + ct.Offset.B,
		A: c.A*ct.Multiplier.A + ct.Offset.A,
	}
}

// Concat returns the transform equivalent to applying child first, then ct.
// This is how a parent's color is inherited down the slot chain.
func (ct ColorTransform) Concat(child ColorTransform) ColorTransform {
	return ColorTransform{
		Multiplier: Color{
			R: ct.Multiplier.R * child.Multiplier.R,
			G: ct.Multiplier.G * child.Multiplier.G,
			B: ct.Multiplier.B * child.Multiplier.B,
			A: ct.Multiplier.A * child.Multiplier.A,
		},
		Offset: Color{
			R: child.Offset.R*ct.Multiplier.R + ct.Offset.R,
			G: child.Offset.G*ct.Multiplier.G + ct.Offset.G,
			B: child.Offset.B*ct.Multiplier.B + ct.Offset.B,
			A: child.Offset.A*ct.Multiplier.A + ct.Offset.A,
		},
	}
}

// Lerp interpolates every channel linearly from ct to o by p.
func (ct ColorTransform) Lerp(o ColorTransform, p float64) ColorTransform {
	return ColorTransform{
		Multiplier: lerpColor(ct.Multiplier, o.Multiplier, p),
		Offset:     lerpColor(ct.Offset, o.Offset, p),
	}
}

// IsIdentity reports whether ct leaves colors unchanged.
func (ct ColorTransform) IsIdentity() bool {
	return ct == IdentityColorTransform
}

// Normalized returns ct, or the identity when ct is the zero value. Hand-built
// poses and definitions leave colors zero to mean "untinted".
func (ct ColorTransform) Normalized() ColorTransform {
	if ct == (ColorTransform{}) {
		return IdentityColorTransform
	}
	return ct
}

// Tint returns the color a renderer should multiply a white texel by,
// ignoring offsets.
func (ct ColorTransform) Tint() Color {
	return ct.Multiplier
}

func lerpColor(a, b Color, p float64) Color {
	return Color{
		R: a.R + (b.R-a.R)*p,
		G: a.G + (b.G-a.G)*p,
		B: a.B + (b.B-a.B)*p,
		A: a.A + (b.A-a.A)*p,
	}
}
