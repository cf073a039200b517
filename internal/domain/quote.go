package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusReviewed  QuoteStatus = "reviewed"
	QuoteStatusQuoted    QuoteStatus = "quoted"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
	QuoteStatusCancelled QuoteStatus = "cancelled"
)

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending:  {QuoteStatusReviewed, QuoteStatusQuoted, QuoteStatusRejected, QuoteStatusCancelled},
	QuoteStatusReviewed: {QuoteStatusQuoted, QuoteStatusRejected, QuoteStatusCancelled},
	QuoteStatusQuoted:   {QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusCancelled},
}

func ParseQuoteStatus(s string) (QuoteStatus, bool) {
	st := QuoteStatus(s)
	switch st {
	case QuoteStatusPending, QuoteStatusReviewed, QuoteStatusQuoted, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusCancelled:
		return st, true
	}
	return "", false
}

func (s QuoteStatus) CanTransition(to QuoteStatus) bool {
	for _, n := range quoteTransitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// QuoteRequest is a submitted custom-print request awaiting a human
// confirmation by the shop.
type QuoteRequest struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Status     QuoteStatus `gorm:"type:varchar(20);index" json:"status"`
	Email      string      `gorm:"size:140;index" json:"email"`
	Phone      string      `gorm:"size:60" json:"phone"`
	Notes      string      `gorm:"type:text" json:"notes"`
	CustomerID *uuid.UUID  `gorm:"type:uuid;index" json:"customer_id,omitempty"`

	FileName  string `gorm:"size:255" json:"file_name"`
	FilePath  string `gorm:"size:255" json:"file_path"`
	FileSize  int64  `json:"file_size"`
	Triangles int    `json:"triangles"`

	Material     string  `gorm:"size:40" json:"material"`
	Color        string  `gorm:"size:40" json:"color"`
	QualityID    string  `gorm:"size:40" json:"quality_id"`
	QualityLabel string  `gorm:"size:80" json:"quality"`
	InfillPct    int     `json:"infill"`
	Scale        float64 `gorm:"type:decimal(10,4)" json:"scale"`

	VolumeCm3  float64 `gorm:"type:decimal(12,2)" json:"volume"`
	DimXCm     float64 `gorm:"type:decimal(10,2)" json:"dim_x"`
	DimYCm     float64 `gorm:"type:decimal(10,2)" json:"dim_y"`
	DimZCm     float64 `gorm:"type:decimal(10,2)" json:"dim_z"`
	PrintXCm   float64 `gorm:"type:decimal(10,2)" json:"print_x"`
	PrintYCm   float64 `gorm:"type:decimal(10,2)" json:"print_y"`
	PrintZCm   float64 `gorm:"type:decimal(10,2)" json:"print_z"`
	Price      int     `json:"estimated_price"`
	Hours      float64 `gorm:"type:decimal(10,3)" json:"estimated_hours"`
	TimeLabel  string  `gorm:"size:20" json:"estimated_time"`
	QuotedCost float64 `gorm:"type:decimal(12,2);default:0" json:"quoted_cost"`

	Specifications Specifications `gorm:"type:jsonb;serializer:json" json:"specifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Specifications is the record the quote page submits alongside the file.
type Specifications struct {
	Quality         string       `json:"quality"`
	Material        string       `json:"material"`
	Infill          string       `json:"infill"`
	OriginalStats   ModelMetrics `json:"originalStats"`
	PrintDimensions Dimensions   `json:"printDimensions"`
	Scale           string       `json:"scale"`
	EstimatedPrice  int          `json:"estimatedPrice"`
	EstimatedTime   string       `json:"estimatedTime"`
}

type QuoteFilter struct {
	Status   QuoteStatus
	Email    string
	Page     int
	PageSize int
}

type QuoteRepo interface {
	Save(ctx context.Context, q *QuoteRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*QuoteRequest, error)
	List(ctx context.Context, f QuoteFilter) ([]QuoteRequest, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, st QuoteStatus) error
}

type FileStorage interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// Attachment is a file sent along with a notification.
type Attachment struct {
	Name string
	Data []byte
}

type QuoteNotifier interface {
	NotifyQuoteRequest(ctx context.Context, q *QuoteRequest, file Attachment) error
}
