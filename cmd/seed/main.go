package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"seatchart/internal/layout"
	"seatchart/internal/shared/config"
	"seatchart/internal/shared/database"
)

// Demo venue geometry, in content units.
const (
	seatSpacing   = 30.0
	rowSpacing    = 32.0
	sectionMargin = 40.0
	sectionGap    = 60.0
)

type Seeder struct {
	db   *database.DB
	repo layout.Repository
}

type sectionPlan struct {
	name     string
	rows     []string
	seats    int
	category string
	// every seat numbered here is pre-booked
	booked map[string]bool
}

func main() {
	fmt.Println("🌱 Starting Seatchart Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	if db.PostgreSQL == nil {
		log.Fatal("Seeding needs LAYOUT_SOURCE=db")
	}

	seeder := &Seeder{db: db, repo: layout.NewRepository(db.PostgreSQL)}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	id, err := seeder.SeedAll(context.Background())
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Printf("\n🎉 Seeding completed! Open a chart with layout_id=%s\n", id)
}

// CleanDatabase truncates the chart tables children first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"chart_seats",
		"chart_rows",
		"chart_sections",
		"chart_ticket_categories",
		"chart_layouts",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll writes one demo layout and returns its id.
func (s *Seeder) SeedAll(ctx context.Context) (uuid.UUID, error) {
	record := s.demoLayout()
	if err := s.repo.CreateLayout(ctx, record); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create layout: %w", err)
	}
	fmt.Printf("    ✅ Created layout: %s (%d sections)\n", record.Name, len(record.Sections))

	// Cached layouts and saved views would point at the truncated rows.
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return record.ID, nil
}

func (s *Seeder) demoLayout() *layout.LayoutRecord {
	layoutID := uuid.New()
	categories := []layout.TicketCategoryRecord{
		{ID: uuid.New(), LayoutID: layoutID, Name: "Premium", Price: 1200, SelectionLimit: 4},
		{ID: uuid.New(), LayoutID: layoutID, Name: "Gold", Price: 800},
		{ID: uuid.New(), LayoutID: layoutID, Name: "Silver", Price: 450},
	}
	byName := make(map[string]uuid.UUID, len(categories))
	for _, c := range categories {
		byName[c.Name] = c.ID
	}

	plans := []sectionPlan{
		{name: "Premium", rows: []string{"A", "B"}, seats: 12, category: "Premium", booked: map[string]bool{"A6": true, "A7": true}},
		{name: "Stalls", rows: []string{"C", "D", "E", "F", "G"}, seats: 16, category: "Gold", booked: map[string]bool{"D3": true, "E10": true, "E11": true}},
		{name: "Balcony", rows: []string{"H", "J", "K"}, seats: 20, category: "Silver"},
	}

	const stageWidth = 20*seatSpacing + 2*sectionMargin
	y := 120.0
	sections := make([]layout.SectionRecord, 0, len(plans))
	for i, p := range plans {
		width := float64(p.seats-1)*seatSpacing + 2*sectionMargin
		height := float64(len(p.rows)-1)*rowSpacing + 2*sectionMargin
		catID := byName[p.category]

		sec := layout.SectionRecord{
			ID:       uuid.New(),
			LayoutID: layoutID,
			Name:     p.name,
			Position: i,
			X:        (stageWidth - width) / 2,
			Y:        y,
			Width:    width,
			Height:   height,
		}
		for r, title := range p.rows {
			row := layout.RowRecord{ID: uuid.New(), SectionID: sec.ID, Title: title, Position: r}
			for n := 1; n <= p.seats; n++ {
				number := fmt.Sprint(n)
				status := string(layout.StatusAvailable)
				if p.booked[title+number] {
					status = string(layout.StatusBooked)
				}
				cid := catID
				row.Seats = append(row.Seats, layout.SeatRecord{
					ID:               uuid.New(),
					RowID:            row.ID,
					Number:           number,
					Position:         n - 1,
					X:                sectionMargin + float64(n-1)*seatSpacing,
					Y:                sectionMargin + float64(r)*rowSpacing,
					Radius:           layout.DefaultSeatRadius,
					Status:           status,
					TicketCategoryID: &cid,
				})
			}
			sec.Rows = append(sec.Rows, row)
		}
		sections = append(sections, sec)
		y += height + sectionGap
	}

	return &layout.LayoutRecord{
		ID:          layoutID,
		EventID:     uuid.New(),
		Name:        "Demo Theatre",
		StageWidth:  stageWidth,
		StageHeight: 60,
		StageShape:  "curved",
		StageName:   "Stage",
		Categories:  categories,
		Sections:    sections,
	}
}
