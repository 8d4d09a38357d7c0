package bones

// IsSkinned reports whether the active display is a mesh weighted to bones.
func (s *Slot) IsSkinned() bool {
	d := s.display()
	return d != nil && d.mesh != nil && len(d.mesh.weights) > 0
}

// MeshUVs returns the active mesh's texture coordinates, or nil. The slice
// MUST NOT be mutated.
func (s *Slot) MeshUVs() []Vec2 {
	if d := s.display(); d != nil && d.mesh != nil {
		return d.mesh.uvs
	}
	return nil
}

// MeshIndices returns the active mesh's triangle indices, or nil. The slice
// MUST NOT be mutated.
func (s *Slot) MeshIndices() []uint16 {
	if d := s.display(); d != nil && d.mesh != nil {
		return d.mesh.indices
	}
	return nil
}

// MeshVertices returns the active mesh's vertices deformed into world
// space. Rigid meshes follow the slot's world matrix; skinned vertices are
// the weighted sum of each bone's world matrix applied to the vertex offset
// in that bone's space. The result is cached until the pose changes and
// MUST NOT be mutated.
func (s *Slot) MeshVertices() []Vec2 {
	d := s.display()
	if d == nil || d.mesh == nil {
		return nil
	}
	if s.meshValid {
		return s.meshVerts
	}
	m := d.mesh
	if cap(s.meshVerts) < len(m.vertices) {
		s.meshVerts = make([]Vec2, len(m.vertices))
	}
	s.meshVerts = s.meshVerts[:len(m.vertices)]
	if len(m.weights) > 0 {
		skinVertices(s.meshVerts, m, s.armature.bones)
	} else {
		transformVertices(s.meshVerts, m.vertices, s.world)
	}
	s.meshValid = true
	return s.meshVerts
}

// MeshAABB returns the world-space bounds of the deformed mesh.
func (s *Slot) MeshAABB() Rect {
	return boundsOf(s.MeshVertices())
}

// transformVertices writes src mapped through m into dst. dst must be at
// least len(src) long.
func transformVertices(dst, src []Vec2, m Matrix) {
	for i, v := range src {
		dst[i].X = m.A*v.X + m.C*v.Y + m.Tx
		dst[i].Y = m.B*v.X + m.D*v.Y + m.Ty
	}
}

// skinVertices writes the weighted blend of bone-space offsets into dst.
func skinVertices(dst []Vec2, m *meshData, bones []Bone) {
	for i, ws := range m.weights {
		var x, y float64
		for _, w := range ws {
			bx, by := bones[w.bone].world.TransformPoint(w.offset.X, w.offset.Y)
			x += bx * w.weight
			y += by * w.weight
		}
		dst[i] = Vec2{X: x, Y: y}
	}
}
