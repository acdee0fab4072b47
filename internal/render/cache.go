package render

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"seatchart/internal/geometry"
	"seatchart/internal/layout"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// spriteKey identifies a section's geometry within one layout version.
type spriteKey struct {
	version   string
	sectionID string
}

// seatGeometry is the status-independent, content-space part of a seat sprite.
type seatGeometry struct {
	id     string
	rowID  string
	label  string
	row    int
	seat   int
	center geometry.Point
	radius float64
}

// SpriteCache holds per-section seat geometry for reuse across frames and sessions.
// It is bounded by entry count and entries expire after the configured lifetime.
type SpriteCache struct {
	lru *expirable.LRU[spriteKey, []seatGeometry]
}

func NewSpriteCache(size int, ttl time.Duration) *SpriteCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SpriteCache{lru: expirable.NewLRU[spriteKey, []seatGeometry](size, nil, ttl)}
}

// Len returns the number of cached sections.
func (c *SpriteCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every entry.
func (c *SpriteCache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}

func (c *SpriteCache) section(version string, sec *layout.Section) []seatGeometry {
	if c == nil || version == "" {
		return sectionGeometry(sec)
	}
	key := spriteKey{version: version, sectionID: sec.ID}
	if geo, ok := c.lru.Get(key); ok {
		return geo
	}
	geo := sectionGeometry(sec)
	c.lru.Add(key, geo)
	return geo
}

func sectionGeometry(sec *layout.Section) []seatGeometry {
	var out []seatGeometry
	for ri := range sec.Rows {
		row := &sec.Rows[ri]
		for ci := range row.Seats {
			seat := &row.Seats[ci]
			if seat.IsBlank() {
				continue
			}
			out = append(out, seatGeometry{
				id:     seat.ID,
				rowID:  row.ID,
				label:  row.Label(seat),
				row:    ri,
				seat:   ci,
				center: sec.SeatCenter(seat),
				radius: seat.Radius,
			})
		}
	}
	return out
}
