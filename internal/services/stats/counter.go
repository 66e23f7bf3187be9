package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/isittrue-tgbot-go/internal/models"
)

// Counter keeps the in-memory session counters. All methods are safe for concurrent use.
type Counter struct {
	mu       sync.Mutex
	now      func() time.Time
	location *time.Location

	startTime  time.Time
	total      uint64
	text       uint64
	button     uint64
	today      uint64
	lastReset  time.Time
	categories map[models.Category]uint64
}

// Option configures a Counter
type Option func(*Counter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Counter) {
		c.now = now
	}
}

// WithLocation sets the timezone that decides where a day ends
func WithLocation(loc *time.Location) Option {
	return func(c *Counter) {
		c.location = loc
	}
}

// NewCounter creates zeroed counters starting now
func NewCounter(opts ...Option) *Counter {
	c := &Counter{
		now:        time.Now,
		location:   time.Local,
		categories: make(map[models.Category]uint64, len(models.Categories)),
	}
	for _, opt := range opts {
		opt(c)
	}

	now := c.now().In(c.location)
	c.startTime = now
	c.lastReset = dateOf(now)
	for _, category := range models.Categories {
		c.categories[category] = 0
	}
	return c
}

// RecordQuery counts one incoming request on the given channel
func (c *Counter) RecordQuery(channel models.Channel) error {
	if !channel.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownChannel, channel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverLocked()
	c.today++
	c.total++
	if channel == models.ChannelText {
		c.text++
	} else {
		c.button++
	}
	return nil
}

// RecordCategory counts one generated response
func (c *Counter) RecordCategory(category models.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}

	c.mu.Lock()
	c.categories[category]++
	c.mu.Unlock()
	return nil
}

// ResetIfNewDay zeroes the daily counter when the date has changed since the last reset.
// It reports whether a reset happened.
func (c *Counter) ResetIfNewDay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rolloverLocked()
}

func (c *Counter) rolloverLocked() bool {
	today := dateOf(c.now().In(c.location))
	if today.Equal(c.lastReset) {
		return false
	}
	c.today = 0
	c.lastReset = today
	return true
}

// Snapshot returns a consistent copy of the counters
func (c *Counter) Snapshot() models.StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rolloverLocked()

	categories := make(map[models.Category]uint64, len(c.categories))
	for category, n := range c.categories {
		categories[category] = n
	}

	return models.StatsSnapshot{
		StartTime:     c.startTime,
		Uptime:        c.now().Sub(c.startTime),
		TotalQueries:  c.total,
		TextQueries:   c.text,
		ButtonQueries: c.button,
		TodayQueries:  c.today,
		LastReset:     c.lastReset,
		Categories:    categories,
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
