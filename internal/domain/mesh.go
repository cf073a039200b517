package domain

import "github.com/go-gl/mathgl/mgl64"

// Triangle is three vertices in the mesh's native unit (mm).
type Triangle [3]mgl64.Vec3

// Mesh is a flat triangle soup. No topology is kept: duplicated or
// unreferenced vertices are fine.
type Mesh struct {
	Triangles []Triangle
}

// MeshFromVertices groups a flat vertex buffer into triangles. Trailing
// vertices that do not complete a triangle are dropped.
func MeshFromVertices(verts []mgl64.Vec3) Mesh {
	n := len(verts) / 3
	m := Mesh{Triangles: make([]Triangle, 0, n)}
	for i := 0; i < n; i++ {
		m.Triangles = append(m.Triangles, Triangle{verts[3*i], verts[3*i+1], verts[3*i+2]})
	}
	return m
}

func (m Mesh) Empty() bool { return len(m.Triangles) == 0 }

func (m Mesh) TriangleCount() int { return len(m.Triangles) }

// Reversed returns a copy with the winding of every triangle flipped.
func (m Mesh) Reversed() Mesh {
	out := Mesh{Triangles: make([]Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = Triangle{t[0], t[2], t[1]}
	}
	return out
}

// Translated returns a copy moved by d.
func (m Mesh) Translated(d mgl64.Vec3) Mesh {
	out := Mesh{Triangles: make([]Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = Triangle{t[0].Add(d), t[1].Add(d), t[2].Add(d)}
	}
	return out
}
