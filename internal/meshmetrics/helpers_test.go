package meshmetrics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/phenrril/protoquote/internal/domain"
)

// boxMesh builds a closed, outward-wound 12-triangle box with one corner at o.
func boxMesh(o mgl64.Vec3, sx, sy, sz float64) domain.Mesh {
	v := func(x, y, z float64) mgl64.Vec3 { return o.Add(mgl64.Vec3{x * sx, y * sy, z * sz}) }
	tris := []domain.Triangle{
		{v(0, 0, 0), v(0, 1, 0), v(1, 1, 0)}, {v(0, 0, 0), v(1, 1, 0), v(1, 0, 0)},
		{v(0, 0, 1), v(1, 0, 1), v(1, 1, 1)}, {v(0, 0, 1), v(1, 1, 1), v(0, 1, 1)},
		{v(0, 0, 0), v(1, 0, 0), v(1, 0, 1)}, {v(0, 0, 0), v(1, 0, 1), v(0, 0, 1)},
		{v(0, 1, 0), v(0, 1, 1), v(1, 1, 1)}, {v(0, 1, 0), v(1, 1, 1), v(1, 1, 0)},
		{v(0, 0, 0), v(0, 0, 1), v(0, 1, 1)}, {v(0, 0, 0), v(0, 1, 1), v(0, 1, 0)},
		{v(1, 0, 0), v(1, 1, 0), v(1, 1, 1)}, {v(1, 0, 0), v(1, 1, 1), v(1, 0, 1)},
	}
	return domain.Mesh{Triangles: tris}
}

func cube(edge float64, o mgl64.Vec3) domain.Mesh { return boxMesh(o, edge, edge, edge) }

func defaultConfig() domain.PrintConfiguration {
	return domain.PrintConfiguration{Scale: 1, QualityID: "0.2-std-0.6-nozzle", QualityMultiplier: 1, InfillPct: 20}
}
