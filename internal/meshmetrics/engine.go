// Package meshmetrics measures a triangle mesh and turns the measurements
// plus a print configuration into a price and time estimate.
package meshmetrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/phenrril/protoquote/internal/domain"
)

const (
	mm3PerCm3 = 1000.0
	mmPerCm   = 10.0
)

// MaxPrice is the largest price the engine reports. Larger figures are not
// exact in float64 whole units.
const MaxPrice = 1 << 53

var ErrOutOfRange = errors.New("estimate out of range")

// Volume returns the enclosed volume in cm³ using the signed tetrahedron sum
// against the origin. The absolute value makes the result independent of
// the exporter's winding direction. Open meshes give a best-effort number.
func Volume(m domain.Mesh) float64 {
	var sum float64
	for _, t := range m.Triangles {
		sum += t[0].Dot(t[1].Cross(t[2])) / 6.0
	}
	return math.Abs(sum) / mm3PerCm3
}

// Dimensions returns the bounding box extents in cm after centering the
// mesh on its own bounding box midpoint.
func Dimensions(m domain.Mesh) domain.Dimensions {
	return extents(centered(m, bounds(m)))
}

// Compute measures the mesh as seen in the given orientation. Volume does
// not depend on orientation; the extents do.
func Compute(m domain.Mesh, o domain.Orientation) domain.ModelMetrics {
	if m.Empty() {
		return domain.ModelMetrics{}
	}
	c := centered(m, bounds(m))
	if o.RotationX != 0 || o.RotationY != 0 {
		c = rotated(c, o)
	}
	return domain.ModelMetrics{VolumeCm3: Volume(m), DimensionsCm: extents(c)}
}

type box struct {
	min, max mgl64.Vec3
	ok       bool
}

func bounds(m domain.Mesh) box {
	var b box
	for _, t := range m.Triangles {
		for _, v := range t {
			if !b.ok {
				b = box{min: v, max: v, ok: true}
				continue
			}
			for i := 0; i < 3; i++ {
				b.min[i] = math.Min(b.min[i], v[i])
				b.max[i] = math.Max(b.max[i], v[i])
			}
		}
	}
	return b
}

func centered(m domain.Mesh, b box) domain.Mesh {
	if !b.ok {
		return m
	}
	mid := b.min.Add(b.max).Mul(0.5)
	return m.Translated(mid.Mul(-1))
}

func rotated(m domain.Mesh, o domain.Orientation) domain.Mesh {
	rot := mgl64.Rotate3DY(mgl64.DegToRad(o.RotationY)).Mul3(mgl64.Rotate3DX(mgl64.DegToRad(o.RotationX)))
	out := domain.Mesh{Triangles: make([]domain.Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = domain.Triangle{rot.Mul3x1(t[0]), rot.Mul3x1(t[1]), rot.Mul3x1(t[2])}
	}
	return out
}

func extents(m domain.Mesh) domain.Dimensions {
	b := bounds(m)
	if !b.ok {
		return domain.Dimensions{}
	}
	size := b.max.Sub(b.min).Mul(1 / mmPerCm)
	return domain.Dimensions{X: size.X(), Y: size.Y(), Z: size.Z()}
}

// ScaledVolume applies a uniform linear scale; volume grows with its cube.
func ScaledVolume(mm domain.ModelMetrics, scale float64) float64 {
	return mm.VolumeCm3 * scale * scale * scale
}

func infillFactor(pct int) float64 { return 1 + float64(pct)/200 }

// Price is the estimated price in whole currency units. No usable geometry
// means no price, so the surcharge is not applied either.
func Price(mm domain.ModelMetrics, cfg domain.PrintConfiguration, p domain.Pricing) int {
	if mm.VolumeCm3 == 0 {
		return 0
	}
	raw := rawPrice(mm, cfg, p)
	if !(raw < MaxPrice-float64(p.FixedSurcharge)) {
		return MaxPrice
	}
	return int(math.Round(raw)) + p.FixedSurcharge
}

func rawPrice(mm domain.ModelMetrics, cfg domain.PrintConfiguration, p domain.Pricing) float64 {
	return ScaledVolume(mm, cfg.Scale) * p.BaseRate * cfg.QualityMultiplier * infillFactor(cfg.InfillPct)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Estimable reports whether mm under cfg yields finite figures and a price
// below MaxPrice.
func Estimable(mm domain.ModelMetrics, cfg domain.PrintConfiguration, p domain.Pricing) bool {
	d := mm.DimensionsCm.Scaled(cfg.Scale)
	if !finite(mm.VolumeCm3, d.X, d.Y, d.Z, Hours(mm, cfg)) {
		return false
	}
	raw := rawPrice(mm, cfg, p)
	return finite(raw) && raw < MaxPrice-float64(p.FixedSurcharge)
}

// Hours is the estimated print time.
func Hours(mm domain.ModelMetrics, cfg domain.PrintConfiguration) float64 {
	if mm.VolumeCm3 == 0 {
		return 0
	}
	v := ScaledVolume(mm, cfg.Scale)
	return (v / 10) * cfg.QualityMultiplier * (1 + float64(cfg.InfillPct)/100)
}

type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func SplitHours(h float64) Duration {
	if !(h > 0) || math.IsInf(h, 0) {
		return Duration{}
	}
	whole := math.Floor(h)
	return Duration{Hours: int(whole), Minutes: int(math.Floor((h - whole) * 60))}
}

func (d Duration) String() string {
	return fmt.Sprintf("%dh %dm", d.Hours, d.Minutes)
}

// Estimate derives the full quote estimate. It is a pure function of its
// inputs so callers recompute it on every read.
func Estimate(mm domain.ModelMetrics, cfg domain.PrintConfiguration, p domain.Pricing) domain.QuoteEstimate {
	h := Hours(mm, cfg)
	return domain.QuoteEstimate{
		ScaledVolumeCm3: ScaledVolume(mm, cfg.Scale),
		ScaledDims:      mm.DimensionsCm.Scaled(cfg.Scale),
		Price:           Price(mm, cfg, p),
		Hours:           h,
		Time:            SplitHours(h).String(),
	}
}

// ScaleFromDimension converts a target printed size on one axis into the
// uniform scale factor. The edit is rejected, and prev returned, when the
// original extent on that axis is zero, the target is not a positive finite
// number, or the resulting scale is outside (0, MaxScale].
func ScaleFromDimension(mm domain.ModelMetrics, axis domain.Axis, target, prev float64) (float64, bool) {
	orig := mm.DimensionsCm.Get(axis)
	if orig <= 0 || math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return prev, false
	}
	scale := target / orig
	if !domain.ValidScale(scale) {
		return prev, false
	}
	return scale, true
}
