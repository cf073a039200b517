package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnknownQuality     = errors.New("unknown quality tier")
	ErrUnknownMaterial    = errors.New("unknown material")
	ErrUnknownColor       = errors.New("color not offered for material")
	ErrInvalidInfill      = errors.New("infill out of range")
	ErrInvalidScale       = errors.New("scale must be positive, finite and at most MaxScale")
	ErrInvalidOrientation = errors.New("rotation must be finite")
)

// MaxScale caps the uniform scale factor applied to a model.
const MaxScale = 1000.0

// ValidScale reports whether v is usable as a uniform scale factor.
func ValidScale(v float64) bool { return v > 0 && v <= MaxScale }

type QualityTier struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

type Material struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
}

// Pricing holds the business calibration constants of the estimator.
// Operators override it from configuration.
type Pricing struct {
	BaseRate       float64       `json:"base_rate"`
	FixedSurcharge int           `json:"fixed_surcharge"`
	Qualities      []QualityTier `json:"qualities"`
	Materials      []Material    `json:"materials"`
	Infills        []int         `json:"infills"`
}

func DefaultPricing() Pricing {
	return Pricing{
		BaseRate:       8,
		FixedSurcharge: 150,
		Qualities: []QualityTier{
			{ID: "0.2-std-0.6-nozzle", Name: "0.2 mm Standard (0.6mm Nozzle)", Multiplier: 1.0},
			{ID: "0.2-std", Name: "0.2 mm Standard", Multiplier: 1.2},
			{ID: "0.15-med", Name: "0.15 mm Medium", Multiplier: 1.5},
			{ID: "0.1-high", Name: "0.1 mm High Detail", Multiplier: 2.0},
		},
		Materials: []Material{
			{ID: "abs", Name: "ABS", Colors: []string{"Black", "White", "Grey", "Red", "Blue"}},
			{ID: "pla", Name: "PLA", Colors: []string{"Black", "White", "Grey", "Yellow", "Green"}},
			{ID: "petg", Name: "PETG", Colors: []string{"Translucent", "Black"}},
		},
		Infills: []int{20, 30, 40, 50, 60, 70, 80, 90, 100},
	}
}

func (p Pricing) Quality(id string) (QualityTier, error) {
	for _, q := range p.Qualities {
		if q.ID == id {
			return q, nil
		}
	}
	return QualityTier{}, ErrUnknownQuality
}

func (p Pricing) Material(id string) (Material, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, m := range p.Materials {
		if m.ID == id || strings.EqualFold(m.Name, id) {
			return m, nil
		}
	}
	return Material{}, ErrUnknownMaterial
}

func (m Material) HasColor(c string) bool {
	for _, v := range m.Colors {
		if strings.EqualFold(v, strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}

// DefaultConfig is the configuration a freshly loaded model starts with.
func (p Pricing) DefaultConfig() PrintConfiguration {
	cfg := PrintConfiguration{Scale: 1, InfillPct: 20}
	if len(p.Infills) > 0 {
		cfg.InfillPct = p.Infills[0]
	}
	if len(p.Qualities) > 0 {
		cfg.QualityID = p.Qualities[0].ID
		cfg.QualityMultiplier = p.Qualities[0].Multiplier
	}
	if len(p.Materials) > 0 {
		cfg.Material = p.Materials[0].ID
		if len(p.Materials[0].Colors) > 0 {
			cfg.Color = p.Materials[0].Colors[0]
		}
	}
	return cfg
}

// Validate resolves the quality multiplier from the tier table and checks
// the enumerated fields.
func (p Pricing) Validate(cfg *PrintConfiguration) error {
	if !ValidScale(cfg.Scale) {
		return ErrInvalidScale
	}
	if !cfg.Orientation.Valid() {
		return ErrInvalidOrientation
	}
	if cfg.InfillPct < 0 || cfg.InfillPct > 100 {
		return ErrInvalidInfill
	}
	q, err := p.Quality(cfg.QualityID)
	if err != nil {
		return err
	}
	cfg.QualityMultiplier = q.Multiplier
	if cfg.Material != "" {
		m, err := p.Material(cfg.Material)
		if err != nil {
			return err
		}
		cfg.Material = m.ID
		switch {
		case cfg.Color == "" && len(m.Colors) > 0:
			cfg.Color = m.Colors[0]
		case cfg.Color != "" && !m.HasColor(cfg.Color):
			return ErrUnknownColor
		}
	}
	return nil
}
