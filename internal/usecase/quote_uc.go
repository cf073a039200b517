package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/protoquote/internal/domain"
	"github.com/phenrril/protoquote/internal/meshio"
	"github.com/phenrril/protoquote/internal/meshmetrics"
)

var (
	ErrMissingFile  = errors.New("model file required")
	ErrInvalidEmail = errors.New("invalid email")
	ErrMissingPhone = errors.New("phone required")
	ErrUndecodable  = errors.New("model could not be decoded")
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

type QuoteUC struct {
	Quotes    domain.QuoteRepo
	Customers domain.CustomerRepo
	Storage   domain.FileStorage
	Notifier  domain.QuoteNotifier
	Pricing   domain.Pricing
}

// TargetDimension asks for the model to be rescaled so that one axis
// prints at Value cm.
type TargetDimension struct {
	Axis  domain.Axis
	Value float64
}

type EstimateInput struct {
	FileName string
	Data     []byte
	Config   domain.PrintConfiguration
	Target   *TargetDimension
}

type EstimateResult struct {
	FileName         string                    `json:"file_name"`
	Triangles        int                       `json:"triangles"`
	Metrics          domain.ModelMetrics       `json:"metrics"`
	Config           domain.PrintConfiguration `json:"config"`
	Estimate         domain.QuoteEstimate      `json:"estimate"`
	DimensionApplied bool                      `json:"dimension_applied"`
}

// Estimate decodes the upload and prices it. A file that cannot be decoded
// still yields a zero result together with ErrUndecodable.
func (uc *QuoteUC) Estimate(ctx context.Context, in EstimateInput) (*EstimateResult, error) {
	if len(in.Data) == 0 {
		return nil, ErrMissingFile
	}
	if _, err := meshio.DetectFormat(in.FileName); err != nil {
		return nil, err
	}
	if err := uc.Pricing.Validate(&in.Config); err != nil {
		return nil, err
	}
	mesh, decErr := meshio.Decode(in.FileName, in.Data)
	if decErr != nil {
		log.Warn().Err(decErr).Str("file", in.FileName).Msg("model decode")
		mesh = domain.Mesh{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mm := meshmetrics.Compute(mesh, in.Config.Orientation)

	res := &EstimateResult{FileName: in.FileName, Triangles: mesh.TriangleCount()}
	if in.Target != nil {
		scale, ok := meshmetrics.ScaleFromDimension(mm, in.Target.Axis, in.Target.Value, in.Config.Scale)
		in.Config.Scale = scale
		res.DimensionApplied = ok
	}
	if !meshmetrics.Estimable(mm, in.Config, uc.Pricing) {
		return nil, fmt.Errorf("%w: scale %g", meshmetrics.ErrOutOfRange, in.Config.Scale)
	}
	res.Metrics = mm.Rounded()
	res.Config = in.Config
	res.Estimate = meshmetrics.Estimate(mm, in.Config, uc.Pricing)
	if decErr != nil {
		return res, fmt.Errorf("%w: %v", ErrUndecodable, decErr)
	}
	return res, nil
}

type Submission struct {
	EstimateInput
	Email string
	Phone string
	Notes string
}

// Submit records a quote request and mails the shop. Figures are always
// recomputed from the uploaded file; whatever the browser showed is not
// trusted.
func (uc *QuoteUC) Submit(ctx context.Context, s Submission) (*domain.QuoteRequest, error) {
	email := strings.ToLower(strings.TrimSpace(s.Email))
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	phone := strings.TrimSpace(s.Phone)
	if phone == "" {
		return nil, ErrMissingPhone
	}
	est, err := uc.Estimate(ctx, s.EstimateInput)
	if err != nil && !errors.Is(err, ErrUndecodable) {
		return nil, err
	}

	path, err := uc.Storage.Save(ctx, s.FileName, s.Data)
	if err != nil {
		return nil, fmt.Errorf("store model: %w", err)
	}

	q := newQuoteRequest(est, uc.Pricing)
	q.Email = email
	q.Phone = phone
	q.Notes = strings.TrimSpace(s.Notes)
	q.FilePath = path
	q.FileSize = int64(len(s.Data))

	if uc.Customers != nil {
		if c, err := uc.upsertCustomer(ctx, email, phone); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("customer upsert")
		} else {
			q.CustomerID = &c.ID
		}
	}

	if err := uc.Quotes.Save(ctx, q); err != nil {
		_ = uc.Storage.Delete(ctx, path)
		return nil, fmt.Errorf("save quote: %w", err)
	}

	if uc.Notifier != nil {
		if err := uc.Notifier.NotifyQuoteRequest(ctx, q, domain.Attachment{Name: s.FileName, Data: s.Data}); err != nil {
			log.Error().Err(err).Str("quote_id", q.ID.String()).Msg("quote mail")
		}
	}
	log.Info().Str("quote_id", q.ID.String()).Int("price", q.Price).Str("file", q.FileName).Msg("quote request")
	return q, nil
}

func newQuoteRequest(est *EstimateResult, p domain.Pricing) *domain.QuoteRequest {
	cfg := est.Config
	qualityLabel := cfg.QualityID
	if tier, err := p.Quality(cfg.QualityID); err == nil {
		qualityLabel = tier.Name
	}
	materialLabel := cfg.Material
	if m, err := p.Material(cfg.Material); err == nil {
		materialLabel = m.Name
	}
	if cfg.Color != "" {
		materialLabel += " - " + cfg.Color
	}
	printDims := est.Estimate.ScaledDims.Rounded()
	return &domain.QuoteRequest{
		ID:           uuid.New(),
		Status:       domain.QuoteStatusPending,
		FileName:     est.FileName,
		Triangles:    est.Triangles,
		Material:     cfg.Material,
		Color:        cfg.Color,
		QualityID:    cfg.QualityID,
		QualityLabel: qualityLabel,
		InfillPct:    cfg.InfillPct,
		Scale:        cfg.Scale,
		VolumeCm3:    est.Metrics.VolumeCm3,
		DimXCm:       est.Metrics.DimensionsCm.X,
		DimYCm:       est.Metrics.DimensionsCm.Y,
		DimZCm:       est.Metrics.DimensionsCm.Z,
		PrintXCm:     printDims.X,
		PrintYCm:     printDims.Y,
		PrintZCm:     printDims.Z,
		Price:        est.Estimate.Price,
		Hours:        est.Estimate.Hours,
		TimeLabel:    est.Estimate.Time,
		Specifications: domain.Specifications{
			Quality:         qualityLabel,
			Material:        materialLabel,
			Infill:          fmt.Sprintf("%d%%", cfg.InfillPct),
			OriginalStats:   est.Metrics,
			PrintDimensions: printDims,
			Scale:           fmt.Sprintf("%.0f%%", cfg.Scale*100),
			EstimatedPrice:  est.Estimate.Price,
			EstimatedTime:   est.Estimate.Time,
		},
	}
}

func (uc *QuoteUC) upsertCustomer(ctx context.Context, email, phone string) (*domain.Customer, error) {
	c, err := uc.Customers.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		c = &domain.Customer{ID: uuid.New(), Email: email, Phone: phone}
		return c, uc.Customers.Save(ctx, c)
	}
	if err != nil {
		return nil, err
	}
	if c.Phone != phone {
		c.Phone = phone
		return c, uc.Customers.Save(ctx, c)
	}
	return c, nil
}

func (uc *QuoteUC) Get(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	return uc.Quotes.FindByID(ctx, id)
}

func (uc *QuoteUC) List(ctx context.Context, f domain.QuoteFilter) ([]domain.QuoteRequest, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Quotes.List(ctx, f)
}

// UpdateStatus moves a request along its review lifecycle.
func (uc *QuoteUC) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.QuoteStatus) (*domain.QuoteRequest, error) {
	q, err := uc.Quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, q.Status, to)
	}
	if err := uc.Quotes.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	q.Status = to
	return q, nil
}

// ModelFile returns the stored upload of a request.
func (uc *QuoteUC) ModelFile(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	q, err := uc.Quotes.FindByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := uc.Storage.Open(ctx, q.FilePath)
	if err != nil {
		return "", nil, err
	}
	return q.FileName, data, nil
}

func (uc *QuoteUC) Options() domain.Pricing { return uc.Pricing }
