package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the postgres layout store. Seat statuses are written only by the seeder; live
// status comes from the hold service and the status feed.
type Repository interface {
	StatusSource
	CreateLayout(ctx context.Context, record *LayoutRecord) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func ordered(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *repository) CreateLayout(ctx context.Context, record *LayoutRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) layoutRecord(ctx context.Context, id uuid.UUID) (*LayoutRecord, error) {
	var record LayoutRecord
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Sections", ordered).
		Preload("Sections.Rows", ordered).
		Preload("Sections.Rows.Seats", ordered).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Fetch loads the layout tree. An eventID that does not match the layout's event is treated as not found.
func (r *repository) Fetch(ctx context.Context, layoutID, eventID string) (*Layout, error) {
	id, err := uuid.Parse(layoutID)
	if err != nil {
		return nil, fmt.Errorf("invalid layout ID: %w", err)
	}

	record, err := r.layoutRecord(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLayoutNotFound
		}
		if errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("failed to get layout: %w", err)
	}

	if eventID != "" && record.EventID.String() != eventID {
		return nil, ErrLayoutNotFound
	}

	return record.toLayout(), nil
}

type seatStateRow struct {
	ID     uuid.UUID
	Status string
	HeldBy string
}

// SeatStatuses reads the status columns of every seat in the layout.
func (r *repository) SeatStatuses(ctx context.Context, layoutID, _ string) (map[string]SeatState, error) {
	id, err := uuid.Parse(layoutID)
	if err != nil {
		return nil, fmt.Errorf("invalid layout ID: %w", err)
	}

	var rows []seatStateRow
	err = r.db.WithContext(ctx).
		Table(SeatRecord{}.TableName()).
		Select("chart_seats.id, chart_seats.status, chart_seats.held_by").
		Joins("JOIN chart_rows ON chart_rows.id = chart_seats.row_id").
		Joins("JOIN chart_sections ON chart_sections.id = chart_rows.section_id").
		Where("chart_sections.layout_id = ?", id).
		Scan(&rows).Error
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("failed to get seat statuses: %w", err)
	}

	states := make(map[string]SeatState, len(rows))
	for _, row := range rows {
		states[row.ID.String()] = SeatState{Status: ParseSeatStatus(row.Status), HeldBy: row.HeldBy}
	}
	return states, nil
}

// AutoMigrate creates the layout tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&LayoutRecord{},
		&TicketCategoryRecord{},
		&SectionRecord{},
		&RowRecord{},
		&SeatRecord{},
	)
}
