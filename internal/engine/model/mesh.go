package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/stagegraph/pkg/rres"
)

// ErrEmptyModel is returned for models without geometry.
var ErrEmptyModel = errors.New("model: no geometry")

// Mesh is model geometry laid out for upload.
type Mesh struct {
	Vertices   []byte // VertexFloats little endian floats per vertex
	Indices    []byte // little endian uint16
	IndexCount int
	Bounds     Bounds
}

// HasGeometry reports whether m has anything to draw. Archives may carry
// models that are only a skeleton.
func HasGeometry(m *rres.Model) bool {
	return len(m.Vertices) > 0 && len(m.Indices) > 0
}

// BuildMesh interleaves the vertices of m and checks that every batch
// stays inside the index data.
func BuildMesh(m *rres.Model) (*Mesh, error) {
	if !HasGeometry(m) {
		return nil, fmt.Errorf("%w: %q", ErrEmptyModel, m.Name)
	}
	for i, b := range m.Batches {
		if int(b.Material) >= len(m.Materials) {
			return nil, fmt.Errorf("model %q batch %d: material %d of %d", m.Name, i, b.Material, len(m.Materials))
		}
		if uint64(b.IndexStart)+uint64(b.IndexCount) > uint64(len(m.Indices)) {
			return nil, fmt.Errorf("model %q batch %d: indices [%d,+%d) of %d", m.Name, i, b.IndexStart, b.IndexCount, len(m.Indices))
		}
	}

	mesh := &Mesh{
		Vertices:   make([]byte, 0, len(m.Vertices)*VertexFloats*4),
		Indices:    make([]byte, 0, len(m.Indices)*2),
		IndexCount: len(m.Indices),
	}
	for _, v := range m.Vertices {
		for _, f := range [VertexFloats]float32{
			v.Position[0], v.Position[1], v.Position[2],
			v.Normal[0], v.Normal[1], v.Normal[2],
			v.UV[0], v.UV[1],
		} {
			mesh.Vertices = binary.LittleEndian.AppendUint32(mesh.Vertices, math.Float32bits(f))
		}
		mesh.Bounds = mesh.Bounds.Extend(mgl32.Vec3(v.Position))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return nil, fmt.Errorf("model %q: index %d of %d vertices", m.Name, idx, len(m.Vertices))
		}
		mesh.Indices = binary.LittleEndian.AppendUint16(mesh.Indices, idx)
	}
	return mesh, nil
}
