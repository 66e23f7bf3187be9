package responses

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/isittrue-tgbot-go/internal/models"
)

// Service picks canned responses
type Service interface {
	Select() (string, models.Category)
	ResponseFor(category models.Category) (string, error)
	Probabilities() map[models.Category]float64
}

// Selector draws a category by weight, then a response uniformly from that category
type Selector struct {
	catalog    *Catalog
	weights    map[models.Category]float64
	categories []models.Category
	cumulative []float64
	total      float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector builds the cumulative weight table. A nil source is seeded from the clock.
func NewSelector(catalog *Catalog, weights map[models.Category]float64, src rand.Source) (*Selector, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}

	s := &Selector{
		catalog: catalog,
		weights: make(map[models.Category]float64, len(weights)),
		rng:     rand.New(src),
	}

	for category, w := range weights {
		if !category.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
		}
		if w < 0 {
			return nil, fmt.Errorf("weight for %s must not be negative: %v", category, w)
		}
		s.weights[category] = w
	}

	// fixed order keeps draws reproducible for a given seed
	for _, category := range models.Categories {
		w := s.weights[category]
		if w == 0 {
			continue
		}
		list, err := catalog.Responses(category)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("category %s has weight %v but no responses", category, w)
		}
		s.total += w
		s.categories = append(s.categories, category)
		s.cumulative = append(s.cumulative, s.total)
	}

	if s.total <= 0 {
		return nil, fmt.Errorf("response weights must sum to a positive value")
	}

	return s, nil
}

// Select returns a random response and its category
func (s *Selector) Select() (string, models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.rng.Float64() * s.total
	idx := sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > u
	})
	if idx == len(s.cumulative) {
		idx = len(s.cumulative) - 1
	}

	category := s.categories[idx]
	list, _ := s.catalog.Responses(category)
	return list[s.rng.Intn(len(list))], category
}

// ResponseFor returns a random response from the given category
func (s *Selector) ResponseFor(category models.Category) (string, error) {
	list, err := s.catalog.Responses(category)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return list[s.rng.Intn(len(list))], nil
}

// Weights returns a copy of the configured weight table
func (s *Selector) Weights() map[models.Category]float64 {
	weights := make(map[models.Category]float64, len(models.Categories))
	for _, category := range models.Categories {
		weights[category] = s.weights[category]
	}
	return weights
}

// Probabilities returns the normalised selection probability of each category
func (s *Selector) Probabilities() map[models.Category]float64 {
	probabilities := make(map[models.Category]float64, len(models.Categories))
	for _, category := range models.Categories {
		probabilities[category] = s.weights[category] / s.total
	}
	return probabilities
}

// CatalogSize returns the number of responses per category
func (s *Selector) CatalogSize() map[models.Category]int {
	return s.catalog.Size()
}

// Check verifies that every weighted category can still produce a response.
// It does not draw from the random source.
func (s *Selector) Check() error {
	if s.total <= 0 {
		return fmt.Errorf("response weights must sum to a positive value")
	}
	sizes := s.catalog.Size()
	for _, category := range s.categories {
		if sizes[category] == 0 {
			return fmt.Errorf("category %s has no responses", category)
		}
	}
	return nil
}
