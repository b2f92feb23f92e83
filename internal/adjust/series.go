package adjust

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ingresos-analytics/internal/domain"
)

// Series is a read-only, date-sorted quotation series with one point per day.
type Series struct {
	points []domain.QuotationPoint
}

// NewSeries sorts and dedupes points. For a repeated date the last observation wins.
func NewSeries(points []domain.QuotationPoint) (*Series, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("NewSeries: %w", domain.ErrNoQuotations)
	}

	byDate := make(map[civil.Date]domain.QuotationPoint, len(points))
	for _, p := range points {
		if !p.Date.IsValid() {
			return nil, fmt.Errorf("NewSeries: invalid quotation date %v", p.Date)
		}
		if !p.ARSPerUSD.IsPositive() {
			return nil, fmt.Errorf("NewSeries: non-positive quotation %s on %s", p.ARSPerUSD, p.Date)
		}
		byDate[p.Date] = p
	}

	sorted := make([]domain.QuotationPoint, 0, len(byDate))
	for _, p := range byDate {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	return &Series{points: sorted}, nil
}

// Len returns the number of distinct dates.
func (s *Series) Len() int { return len(s.points) }

// First returns the earliest point.
func (s *Series) First() domain.QuotationPoint { return s.points[0] }

// Last returns the latest point.
func (s *Series) Last() domain.QuotationPoint { return s.points[len(s.points)-1] }

// At returns the point for exactly d.
func (s *Series) At(d civil.Date) (domain.QuotationPoint, bool) {
	i := s.searchAfter(d)
	if i > 0 && s.points[i-1].Date == d {
		return s.points[i-1], true
	}
	return domain.QuotationPoint{}, false
}

// OnOrBefore returns the latest point dated d or earlier, at most windowDays back.
// It never returns a point after d.
func (s *Series) OnOrBefore(d civil.Date, windowDays int) (domain.QuotationPoint, bool) {
	i := s.searchAfter(d)
	if i == 0 {
		return domain.QuotationPoint{}, false
	}
	p := s.points[i-1]
	if d.DaysSince(p.Date) > windowDays {
		return domain.QuotationPoint{}, false
	}
	return p, true
}

// After returns the earliest point strictly after d, at most windowDays ahead.
func (s *Series) After(d civil.Date, windowDays int) (domain.QuotationPoint, bool) {
	i := s.searchAfter(d)
	if i == len(s.points) {
		return domain.QuotationPoint{}, false
	}
	p := s.points[i]
	if p.Date.DaysSince(d) > windowDays {
		return domain.QuotationPoint{}, false
	}
	return p, true
}

// searchAfter returns the index of the first point dated after d.
func (s *Series) searchAfter(d civil.Date) int {
	return sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Date.After(d)
	})
}
