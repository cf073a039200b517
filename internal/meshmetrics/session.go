package meshmetrics

import (
	"errors"
	"sync"

	"github.com/phenrril/protoquote/internal/domain"
)

var (
	ErrNoModel         = errors.New("no model loaded")
	ErrRejectedEdit    = errors.New("dimension edit rejected")
	ErrStaleEvaluation = errors.New("stale mesh evaluation")
)

// Session holds the one model a customer is quoting and the configuration
// they picked for it. Decoding may happen on another goroutine; Begin/Apply
// make sure only the most recently requested mesh ever lands.
type Session struct {
	mu      sync.Mutex
	pricing domain.Pricing
	seq     uint64
	mesh    *domain.Mesh
	metrics domain.ModelMetrics
	cfg     domain.PrintConfiguration
}

func NewSession(p domain.Pricing) *Session {
	return &Session{pricing: p, cfg: p.DefaultConfig()}
}

// Begin registers a new decode request and returns its sequence number.
// Any result tagged with an older number is discarded by Apply.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Apply installs the mesh decoded for request seq. The scale resets to 1 as
// a new model always starts at its native size.
func (s *Session) Apply(seq uint64, m domain.Mesh) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return ErrStaleEvaluation
	}
	s.mesh = &m
	s.cfg.Scale = 1
	s.cfg.Orientation = domain.Orientation{}
	s.metrics = Compute(m, s.cfg.Orientation)
	return nil
}

// Clear removes the model. Pending decodes are invalidated too.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.mesh = nil
	s.metrics = domain.ModelMetrics{}
	s.cfg.Scale = 1
	s.cfg.Orientation = domain.Orientation{}
}

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mesh != nil
}

func (s *Session) Metrics() domain.ModelMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

func (s *Session) Config() domain.PrintConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Session) SetScale(v float64) error {
	if !domain.ValidScale(v) {
		return domain.ErrInvalidScale
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg
	next.Scale = v
	if !Estimable(s.metrics, next, s.pricing) {
		return ErrOutOfRange
	}
	s.cfg.Scale = v
	return nil
}

// SetTargetDimension rescales the model uniformly so that the given axis
// prints at target cm.
func (s *Session) SetTargetDimension(axis domain.Axis, target float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return ErrNoModel
	}
	scale, ok := ScaleFromDimension(s.metrics, axis, target, s.cfg.Scale)
	next := s.cfg
	next.Scale = scale
	if !ok || !Estimable(s.metrics, next, s.pricing) {
		return ErrRejectedEdit
	}
	s.cfg.Scale = scale
	return nil
}

func (s *Session) SetQuality(id string) error {
	q, err := s.pricing.Quality(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.QualityID = q.ID
	s.cfg.QualityMultiplier = q.Multiplier
	return nil
}

// SetMaterial switches material. An empty color selects the material's
// first color.
func (s *Session) SetMaterial(id, color string) error {
	m, err := s.pricing.Material(id)
	if err != nil {
		return err
	}
	if color == "" && len(m.Colors) > 0 {
		color = m.Colors[0]
	}
	if color != "" && !m.HasColor(color) {
		return domain.ErrUnknownColor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Material = m.ID
	s.cfg.Color = color
	return nil
}

func (s *Session) SetInfill(pct int) error {
	if pct < 0 || pct > 100 {
		return domain.ErrInvalidInfill
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.InfillPct = pct
	return nil
}

// SetOrientation re-measures the extents in the new orientation.
func (s *Session) SetOrientation(o domain.Orientation) error {
	if !o.Valid() {
		return domain.ErrInvalidOrientation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Orientation = o
	if s.mesh != nil {
		s.metrics = Compute(*s.mesh, o)
	}
	return nil
}

// Estimate derives the quote from the current snapshot.
func (s *Session) Estimate() domain.QuoteEstimate {
	s.mu.Lock()
	mm, cfg, p := s.metrics, s.cfg, s.pricing
	s.mu.Unlock()
	return Estimate(mm, cfg, p)
}
