// Package mesh holds vertex and index data and uploads it to device buffers.
package mesh

import (
	"encoding/binary"
)

// Vertex is the vertex layout shared by generated meshes. Packed little
// endian it is 48 bytes: position, color, uv, normal.
type Vertex struct {
	Position [3]float32
	Color    [4]float32
	UV       [2]float32
	Normal   [3]float32
}

// VertexSize is the packed size of a Vertex in bytes.
const VertexSize = 48

// IndexSize is the packed size of an index in bytes.
const IndexSize = 4

// Data is vertex and index data.
type Data struct {
	Vertices []Vertex
	Indices  []uint32
}

// Move translates every vertex by offset.
func (d *Data) Move(offset [3]float32) {
	for i := range d.Vertices {
		p := &d.Vertices[i].Position
		p[0] += offset[0]
		p[1] += offset[1]
		p[2] += offset[2]
	}
}

// Scale multiplies every vertex position by factor.
func (d *Data) Scale(factor float32) {
	for i := range d.Vertices {
		p := &d.Vertices[i].Position
		p[0] *= factor
		p[1] *= factor
		p[2] *= factor
	}
}

// Append adds other after d, offsetting its indices past d's vertices.
func (d *Data) Append(other Data) {
	base := uint32(len(d.Vertices)) //nolint:gosec // vertex counts fit in uint32
	d.Vertices = append(d.Vertices, other.Vertices...)
	for _, idx := range other.Indices {
		d.Indices = append(d.Indices, base+idx)
	}
}

// Clone returns a deep copy.
func (d Data) Clone() Data {
	return Data{
		Vertices: append([]Vertex(nil), d.Vertices...),
		Indices:  append([]uint32(nil), d.Indices...),
	}
}

// VertexBytes packs the vertices little endian.
func (d Data) VertexBytes() []byte {
	out, _ := binary.Append(make([]byte, 0, len(d.Vertices)*VertexSize), binary.LittleEndian, d.Vertices)
	return out
}

// IndexBytes packs the indices little endian.
func (d Data) IndexBytes() []byte {
	out := make([]byte, 0, len(d.Indices)*IndexSize)
	for _, idx := range d.Indices {
		out = binary.LittleEndian.AppendUint32(out, idx)
	}
	return out
}
