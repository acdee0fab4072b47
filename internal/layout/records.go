package layout

import (
	"time"

	"github.com/google/uuid"
)

// LayoutRecord is the persisted layout header including the stage.
type LayoutRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID     uuid.UUID `gorm:"type:uuid;index;not null" json:"event_id"`
	Name        string    `gorm:"not null" json:"name"`
	StageX      float64   `json:"stage_x"`
	StageY      float64   `json:"stage_y"`
	StageWidth  float64   `json:"stage_width"`
	StageHeight float64   `json:"stage_height"`
	StageShape  string    `gorm:"type:varchar(20);default:'straight'" json:"stage_shape"`
	StageName   string    `json:"stage_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Sections   []SectionRecord        `json:"sections,omitempty" gorm:"foreignKey:LayoutID;constraint:OnDelete:CASCADE;"`
	Categories []TicketCategoryRecord `json:"categories,omitempty" gorm:"foreignKey:LayoutID;constraint:OnDelete:CASCADE;"`
}

func (LayoutRecord) TableName() string {
	return "chart_layouts"
}

type TicketCategoryRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LayoutID       uuid.UUID `gorm:"type:uuid;index;not null" json:"layout_id"`
	Name           string    `gorm:"not null" json:"name"`
	Price          float64   `gorm:"not null" json:"price"`
	SelectionLimit int       `gorm:"default:0" json:"selection_limit"`
}

func (TicketCategoryRecord) TableName() string {
	return "chart_ticket_categories"
}

type SectionRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LayoutID uuid.UUID `gorm:"type:uuid;index;not null" json:"layout_id"`
	Name     string    `gorm:"not null" json:"name"`
	Position int       `gorm:"not null" json:"position"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`

	Rows []RowRecord `json:"rows,omitempty" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE;"`
}

func (SectionRecord) TableName() string {
	return "chart_sections"
}

type RowRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SectionID uuid.UUID `gorm:"type:uuid;index;not null" json:"section_id"`
	Title     string    `gorm:"not null" json:"title"`
	Position  int       `gorm:"not null" json:"position"`

	Seats []SeatRecord `json:"seats,omitempty" gorm:"foreignKey:RowID;constraint:OnDelete:CASCADE;"`
}

func (RowRecord) TableName() string {
	return "chart_rows"
}

type SeatRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RowID            uuid.UUID  `gorm:"type:uuid;index;not null" json:"row_id"`
	Number           string     `gorm:"not null" json:"number"`
	Position         int        `gorm:"not null" json:"position"`
	X                float64    `json:"x"`
	Y                float64    `json:"y"`
	Radius           float64    `json:"radius"`
	Status           string     `gorm:"type:varchar(20);default:'available'" json:"status"`
	HeldBy           string     `json:"held_by"`
	TicketCategoryID *uuid.UUID `gorm:"type:uuid" json:"ticket_category_id,omitempty"`
}

func (SeatRecord) TableName() string {
	return "chart_seats"
}

// toLayout converts the persisted tree into the domain layout.
func (r *LayoutRecord) toLayout() *Layout {
	l := &Layout{
		ID:      r.ID.String(),
		EventID: r.EventID.String(),
		Name:    r.Name,
		Stage: Stage{
			X:      r.StageX,
			Y:      r.StageY,
			Width:  r.StageWidth,
			Height: r.StageHeight,
			Shape:  parseStageShape(r.StageShape),
			Name:   r.StageName,
		},
	}

	for _, c := range r.Categories {
		l.Categories = append(l.Categories, TicketCategory{
			ID:    c.ID.String(),
			Name:  c.Name,
			Price: c.Price,
			Limit: c.SelectionLimit,
		})
	}
	categories := make(map[uuid.UUID]*TicketCategory, len(l.Categories))
	for i := range r.Categories {
		categories[r.Categories[i].ID] = &l.Categories[i]
	}

	for _, sr := range r.Sections {
		sec := Section{
			ID:     sr.ID.String(),
			Name:   sr.Name,
			X:      sr.X,
			Y:      sr.Y,
			Width:  sr.Width,
			Height: sr.Height,
		}
		for _, rr := range sr.Rows {
			row := Row{ID: rr.ID.String(), Title: rr.Title}
			for _, st := range rr.Seats {
				seat := Seat{
					ID:     st.ID.String(),
					Number: st.Number,
					X:      st.X,
					Y:      st.Y,
					Radius: st.Radius,
					Status: ParseSeatStatus(st.Status),
					HeldBy: st.HeldBy,
				}
				if seat.Radius <= 0 {
					seat.Radius = DefaultSeatRadius
				}
				if st.TicketCategoryID != nil {
					seat.Category = categories[*st.TicketCategoryID]
				}
				row.Seats = append(row.Seats, seat)
			}
			sec.Rows = append(sec.Rows, row)
		}
		l.Sections = append(l.Sections, sec)
	}
	l.Reindex()
	return l
}
