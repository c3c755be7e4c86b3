package mesh

import "fmt"

// Type selects a generated shape.
type Type uint8

// Generated shapes.
const (
	TypeNone Type = iota
	TypeCube
	TypeTriangle
	TypeQuad
)

// String returns the shape name.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeCube:
		return "cube"
	case TypeTriangle:
		return "triangle"
	case TypeQuad:
		return "quad"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

var white = [4]float32{1, 1, 1, 1}

// Generate returns the data of a unit shape centered on the origin. TypeNone
// and unknown types produce empty data.
func Generate(t Type) Data {
	switch t {
	case TypeCube:
		return cube()
	case TypeTriangle:
		return triangle()
	case TypeQuad:
		return quad()
	default:
		return Data{}
	}
}

func triangle() Data {
	n := [3]float32{0, 0, 1}
	return Data{
		Vertices: []Vertex{
			{Position: [3]float32{1, 1, 0}, Color: [4]float32{1, 0, 0, 1}, UV: [2]float32{1, 1}, Normal: n},
			{Position: [3]float32{-1, 1, 0}, Color: [4]float32{0, 1, 0, 1}, UV: [2]float32{0, 1}, Normal: n},
			{Position: [3]float32{0, -1, 0}, Color: [4]float32{0, 0, 1, 1}, UV: [2]float32{0.5, 0}, Normal: n},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func quad() Data {
	n := [3]float32{0, 0, 1}
	return Data{
		Vertices: []Vertex{
			{Position: [3]float32{1, 1, 0}, Color: white, UV: [2]float32{1, 1}, Normal: n},
			{Position: [3]float32{-1, 1, 0}, Color: white, UV: [2]float32{0, 1}, Normal: n},
			{Position: [3]float32{-1, -1, 0}, Color: white, UV: [2]float32{0, 0}, Normal: n},
			{Position: [3]float32{1, -1, 0}, Color: white, UV: [2]float32{1, 0}, Normal: n},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

// cubeFaces lists each face as its normal and the two in-plane axes.
var cubeFaces = [6]struct{ normal, u, v [3]float32 }{
	{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
	{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
	{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
	{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
	{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
	{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
}

// cube builds a 2x2x2 cube with four vertices per face so every face
// carries its own normal.
func cube() Data {
	var d Data
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		base := uint32(len(d.Vertices)) //nolint:gosec // fixed size
		for _, c := range corners {
			var p [3]float32
			for k := range 3 {
				p[k] = f.normal[k] + c[0]*f.u[k] + c[1]*f.v[k]
			}
			d.Vertices = append(d.Vertices, Vertex{
				Position: p,
				Color:    white,
				UV:       [2]float32{(c[0] + 1) / 2, (c[1] + 1) / 2},
				Normal:   f.normal,
			})
		}
		d.Indices = append(d.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return d
}
