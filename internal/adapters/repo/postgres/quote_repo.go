package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/protoquote/internal/domain"
)

type QuoteRepo struct{ db *gorm.DB }

func NewQuoteRepo(db *gorm.DB) *QuoteRepo { return &QuoteRepo{db: db} }

func (r *QuoteRepo) Save(ctx context.Context, q *domain.QuoteRequest) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(q).Error
}

func (r *QuoteRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	var q domain.QuoteRequest
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *QuoteRepo) List(ctx context.Context, f domain.QuoteFilter) ([]domain.QuoteRequest, int64, error) {
	var list []domain.QuoteRequest
	q := r.db.WithContext(ctx).Model(&domain.QuoteRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if e := strings.ToLower(strings.TrimSpace(f.Email)); e != "" {
		q = q.Where("LOWER(email) = ?", e)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Order("created_at desc").Offset(offset).Limit(f.PageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *QuoteRepo) UpdateStatus(ctx context.Context, id uuid.UUID, st domain.QuoteStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.QuoteRequest{}).Where("id = ?", id).Update("status", st)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
