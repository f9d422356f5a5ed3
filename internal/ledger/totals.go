package ledger

import (
	"context"
	"sort"
	"time"
)

// PeriodTotals aggregates signed spending for one calendar period.
// Debits count negative, credits positive, so Net is the period's cash flow.
type PeriodTotals struct {
	ByCategory map[string]float64
	Period     string
	Net        float64
}

// MonthlyTotals aggregates the merged view into per-month category totals
// over [start, end], oldest month first. Months with no transactions are
// omitted.
func (s *Service) MonthlyTotals(ctx context.Context, start, end time.Time) ([]PeriodTotals, error) {
	merged, _, err := s.assemble(ctx, start, end, true)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*PeriodTotals)
	for _, txn := range merged {
		month := txn.Date.Format("2006-01")
		totals, ok := byMonth[month]
		if !ok {
			totals = &PeriodTotals{Period: month, ByCategory: make(map[string]float64)}
			byMonth[month] = totals
		}
		amount := txn.SignedAmount()
		totals.ByCategory[txn.Category] += amount
		totals.Net += amount
	}

	months := make([]PeriodTotals, 0, len(byMonth))
	for _, totals := range byMonth {
		months = append(months, *totals)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Period < months[j].Period })
	return months, nil
}

// AnnualTotals aggregates one calendar year into a single period.
func (s *Service) AnnualTotals(ctx context.Context, year int) (PeriodTotals, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0).Add(-time.Second)

	merged, _, err := s.assemble(ctx, start, end, true)
	if err != nil {
		return PeriodTotals{}, err
	}

	totals := PeriodTotals{
		Period:     start.Format("2006"),
		ByCategory: make(map[string]float64),
	}
	for _, txn := range merged {
		amount := txn.SignedAmount()
		totals.ByCategory[txn.Category] += amount
		totals.Net += amount
	}
	return totals, nil
}
