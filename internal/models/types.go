package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownChannel  = errors.New("unknown channel")
)

// Category classifies a canned response
type Category string

const (
	CategoryPositive  Category = "positive"
	CategoryNegative  Category = "negative"
	CategoryUncertain Category = "uncertain"
)

// Categories lists every category in selection order
var Categories = []Category{CategoryPositive, CategoryNegative, CategoryUncertain}

// ParseCategory validates a category name
func ParseCategory(name string) (Category, error) {
	c := Category(name)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return c, nil
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	switch c {
	case CategoryPositive, CategoryNegative, CategoryUncertain:
		return true
	}
	return false
}

// Channel is the way a response was triggered
type Channel string

const (
	ChannelText   Channel = "text"
	ChannelButton Channel = "button"
)

func (c Channel) Valid() bool {
	return c == ChannelText || c == ChannelButton
}

// StatsSnapshot is a consistent copy of the session counters
type StatsSnapshot struct {
	StartTime     time.Time
	Uptime        time.Duration
	TotalQueries  uint64
	TextQueries   uint64
	ButtonQueries uint64
	TodayQueries  uint64
	LastReset     time.Time
	Categories    map[Category]uint64
}

// TotalResponses sums the per-category counts
func (s StatsSnapshot) TotalResponses() uint64 {
	var total uint64
	for _, n := range s.Categories {
		total += n
	}
	return total
}

// Percentages returns the share of each category in percent of all responses
func (s StatsSnapshot) Percentages() map[Category]float64 {
	result := make(map[Category]float64, len(Categories))
	total := s.TotalResponses()
	for _, c := range Categories {
		if total == 0 {
			result[c] = 0
			continue
		}
		result[c] = float64(s.Categories[c]) * 100 / float64(total)
	}
	return result
}
