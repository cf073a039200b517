package usecase

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/protoquote/internal/domain"
	"github.com/phenrril/protoquote/internal/meshmetrics"
)

type memQuotes struct {
	items   map[uuid.UUID]*domain.QuoteRequest
	saveErr error
}

func newMemQuotes() *memQuotes { return &memQuotes{items: map[uuid.UUID]*domain.QuoteRequest{}} }

func (m *memQuotes) Save(ctx context.Context, q *domain.QuoteRequest) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *q
	m.items[q.ID] = &cp
	return nil
}

func (m *memQuotes) FindByID(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	q, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memQuotes) List(ctx context.Context, f domain.QuoteFilter) ([]domain.QuoteRequest, int64, error) {
	var out []domain.QuoteRequest
	for _, q := range m.items {
		if f.Status == "" || q.Status == f.Status {
			out = append(out, *q)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memQuotes) UpdateStatus(ctx context.Context, id uuid.UUID, st domain.QuoteStatus) error {
	q, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	q.Status = st
	return nil
}

type memCustomers struct{ byEmail map[string]*domain.Customer }

func (m *memCustomers) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCustomers) Save(ctx context.Context, c *domain.Customer) error {
	m.byEmail[c.Email] = c
	return nil
}

type memStorage struct{ files map[string][]byte }

func (m *memStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	p := "x_" + name
	m.files[p] = data
	return p, nil
}

func (m *memStorage) Open(ctx context.Context, p string) ([]byte, error) {
	d, ok := m.files[p]
	if !ok {
		return nil, errors.New("missing")
	}
	return d, nil
}

func (m *memStorage) Delete(ctx context.Context, p string) error {
	delete(m.files, p)
	return nil
}

type recNotifier struct {
	calls int
	err   error
}

func (r *recNotifier) NotifyQuoteRequest(ctx context.Context, q *domain.QuoteRequest, f domain.Attachment) error {
	r.calls++
	return r.err
}

// cubeSTL is a binary STL of a 10 mm cube.
func cubeSTL(t *testing.T) []byte {
	t.Helper()
	return sizedCubeSTL(t, 10)
}

func sizedCubeSTL(t *testing.T, side float32) []byte {
	t.Helper()
	tris := [][3][3]float32{
		{{0, 0, 0}, {0, 10, 0}, {10, 10, 0}}, {{0, 0, 0}, {10, 10, 0}, {10, 0, 0}},
		{{0, 0, 10}, {10, 0, 10}, {10, 10, 10}}, {{0, 0, 10}, {10, 10, 10}, {0, 10, 10}},
		{{0, 0, 0}, {10, 0, 0}, {10, 0, 10}}, {{0, 0, 0}, {10, 0, 10}, {0, 0, 10}},
		{{0, 10, 0}, {0, 10, 10}, {10, 10, 10}}, {{0, 10, 0}, {10, 10, 10}, {10, 10, 0}},
		{{0, 0, 0}, {0, 0, 10}, {0, 10, 10}}, {{0, 0, 0}, {0, 10, 10}, {0, 10, 0}},
		{{10, 0, 0}, {10, 10, 0}, {10, 10, 10}}, {{10, 0, 0}, {10, 10, 10}, {10, 0, 10}},
	}
	var buf bytes.Buffer
	buf.Write(make([]byte, 80))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(tris))))
	for _, tri := range tris {
		for v := range tri {
			for c := range tri[v] {
				tri[v][c] *= side / 10
			}
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, [3]float32{}))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, tri))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))
	}
	return buf.Bytes()
}

func newUC() (*QuoteUC, *memQuotes, *memStorage, *recNotifier, *memCustomers) {
	q := newMemQuotes()
	s := &memStorage{files: map[string][]byte{}}
	n := &recNotifier{}
	c := &memCustomers{byEmail: map[string]*domain.Customer{}}
	return &QuoteUC{Quotes: q, Customers: c, Storage: s, Notifier: n, Pricing: domain.DefaultPricing()}, q, s, n, c
}

func scenarioConfig() domain.PrintConfiguration {
	return domain.PrintConfiguration{Scale: 2, QualityID: "0.2-std-0.6-nozzle", InfillPct: 20, Material: "abs", Color: "Black"}
}

func TestEstimateScenario(t *testing.T) {
	uc, _, _, _, _ := newUC()
	res, err := uc.Estimate(context.Background(), EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: scenarioConfig()})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Triangles)
	assert.Equal(t, 1.0, res.Metrics.VolumeCm3)
	assert.Equal(t, 220, res.Estimate.Price)
	assert.Equal(t, "0h 57m", res.Estimate.Time)
	assert.Equal(t, 1.0, res.Config.QualityMultiplier)
}

func TestEstimateTargetDimension(t *testing.T) {
	uc, _, _, _, _ := newUC()
	cfg := scenarioConfig()
	cfg.Scale = 1

	res, err := uc.Estimate(context.Background(), EstimateInput{
		FileName: "cube.stl", Data: cubeSTL(t), Config: cfg,
		Target: &TargetDimension{Axis: domain.AxisZ, Value: 2.5},
	})
	require.NoError(t, err)
	assert.True(t, res.DimensionApplied)
	assert.InDelta(t, 2.5, res.Config.Scale, 1e-9)

	res, err = uc.Estimate(context.Background(), EstimateInput{
		FileName: "cube.stl", Data: cubeSTL(t), Config: cfg,
		Target: &TargetDimension{Axis: domain.AxisZ, Value: -2},
	})
	require.NoError(t, err)
	assert.False(t, res.DimensionApplied)
	assert.Equal(t, 1.0, res.Config.Scale)
}

func TestEstimateRejectsBadInput(t *testing.T) {
	uc, _, _, _, _ := newUC()
	ctx := context.Background()

	_, err := uc.Estimate(ctx, EstimateInput{FileName: "cube.stl", Config: scenarioConfig()})
	assert.ErrorIs(t, err, ErrMissingFile)

	_, err = uc.Estimate(ctx, EstimateInput{FileName: "cube.step", Data: []byte("x"), Config: scenarioConfig()})
	assert.Error(t, err)

	cfg := scenarioConfig()
	cfg.QualityID = "nope"
	_, err = uc.Estimate(ctx, EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: cfg})
	assert.ErrorIs(t, err, domain.ErrUnknownQuality)
}

func TestEstimateUndecodableIsZero(t *testing.T) {
	uc, _, _, _, _ := newUC()
	res, err := uc.Estimate(context.Background(), EstimateInput{FileName: "junk.obj", Data: []byte("f 1 2 3\n"), Config: scenarioConfig()})
	assert.ErrorIs(t, err, ErrUndecodable)
	require.NotNil(t, res)
	assert.Zero(t, res.Estimate.Price)
	assert.Equal(t, "0h 0m", res.Estimate.Time)
}

func TestSubmit(t *testing.T) {
	uc, quotes, store, notif, customers := newUC()
	q, err := uc.Submit(context.Background(), Submission{
		EstimateInput: EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: scenarioConfig()},
		Email:         " Maker@Example.com ",
		Phone:         "12345",
		Notes:         "matte please",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.QuoteStatusPending, q.Status)
	assert.Equal(t, "maker@example.com", q.Email)
	assert.Equal(t, 220, q.Price)
	assert.Equal(t, "ABS - Black", q.Specifications.Material)
	assert.Equal(t, "200%", q.Specifications.Scale)
	assert.Equal(t, "20%", q.Specifications.Infill)
	assert.Equal(t, 2.0, q.PrintXCm)
	require.NotNil(t, q.CustomerID)

	assert.Contains(t, quotes.items, q.ID)
	assert.Contains(t, store.files, q.FilePath)
	assert.Equal(t, 1, notif.calls)
	assert.Contains(t, customers.byEmail, "maker@example.com")

	name, data, err := uc.ModelFile(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "cube.stl", name)
	assert.Equal(t, cubeSTL(t), data)
}

func TestSubmitValidation(t *testing.T) {
	uc, _, _, _, _ := newUC()
	in := EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: scenarioConfig()}

	_, err := uc.Submit(context.Background(), Submission{EstimateInput: in, Email: "nope", Phone: "1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = uc.Submit(context.Background(), Submission{EstimateInput: in, Email: "a@b.co", Phone: " "})
	assert.ErrorIs(t, err, ErrMissingPhone)
}

func TestSubmitMailFailureStillPersists(t *testing.T) {
	uc, quotes, _, notif, _ := newUC()
	notif.err = errors.New("smtp down")
	q, err := uc.Submit(context.Background(), Submission{
		EstimateInput: EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: scenarioConfig()},
		Email:         "a@b.co", Phone: "1",
	})
	require.NoError(t, err)
	assert.Contains(t, quotes.items, q.ID)
}

func TestSubmitSaveFailureRemovesFile(t *testing.T) {
	uc, quotes, store, _, _ := newUC()
	quotes.saveErr = errors.New("db down")
	_, err := uc.Submit(context.Background(), Submission{
		EstimateInput: EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: scenarioConfig()},
		Email:         "a@b.co", Phone: "1",
	})
	assert.Error(t, err)
	assert.Empty(t, store.files)
}

func TestUpdateStatus(t *testing.T) {
	uc, quotes, _, _, _ := newUC()
	id := uuid.New()
	quotes.items[id] = &domain.QuoteRequest{ID: id, Status: domain.QuoteStatusPending}

	q, err := uc.UpdateStatus(context.Background(), id, domain.QuoteStatusQuoted)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusQuoted, q.Status)

	_, err = uc.UpdateStatus(context.Background(), id, domain.QuoteStatusPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = uc.UpdateStatus(context.Background(), uuid.New(), domain.QuoteStatusQuoted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEstimateRejectsUnusableScale(t *testing.T) {
	uc, _, _, _, _ := newUC()
	for _, scale := range []float64{1e7, math.Inf(1), math.NaN(), -1} {
		cfg := scenarioConfig()
		cfg.Scale = scale
		res, err := uc.Estimate(context.Background(), EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: cfg})
		assert.ErrorIs(t, err, domain.ErrInvalidScale, "scale %v", scale)
		assert.Nil(t, res)
	}

	cfg := scenarioConfig()
	cfg.Orientation.RotationX = math.NaN()
	_, err := uc.Estimate(context.Background(), EstimateInput{FileName: "cube.stl", Data: cubeSTL(t), Config: cfg})
	assert.ErrorIs(t, err, domain.ErrInvalidOrientation)
}

func TestEstimateHugeTargetKeepsScale(t *testing.T) {
	uc, _, _, _, _ := newUC()
	res, err := uc.Estimate(context.Background(), EstimateInput{
		FileName: "cube.stl", Data: cubeSTL(t), Config: scenarioConfig(),
		Target: &TargetDimension{Axis: domain.AxisX, Value: 1e308},
	})
	require.NoError(t, err)
	assert.False(t, res.DimensionApplied)
	assert.Equal(t, 2.0, res.Config.Scale)
	assert.Equal(t, 220, res.Estimate.Price)
}

func TestEstimateOutOfRangeGeometry(t *testing.T) {
	uc, quotes, _, _, _ := newUC()
	in := EstimateInput{FileName: "huge.stl", Data: sizedCubeSTL(t, 1e30), Config: scenarioConfig()}

	res, err := uc.Estimate(context.Background(), in)
	assert.ErrorIs(t, err, meshmetrics.ErrOutOfRange)
	assert.Nil(t, res)

	_, err = uc.Submit(context.Background(), Submission{EstimateInput: in, Email: "a@b.co", Phone: "1"})
	assert.ErrorIs(t, err, meshmetrics.ErrOutOfRange)
	assert.Empty(t, quotes.items)
}
