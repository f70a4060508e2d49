package cashbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryReader struct {
	entries []Entry
}

func (r *memoryReader) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if !filter.From.IsZero() && e.OccurredAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.OccurredAt.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryReader) DrawerSummary(ctx context.Context, filter ListFilter) (Summary, error) {
	entries, _ := r.ListEntries(ctx, filter)
	var s Summary
	for _, e := range entries {
		if e.Direction == DirectionIn {
			s.TotalIn += e.Amount
		} else {
			s.TotalOut += e.Amount
		}
	}
	s.Net = s.TotalIn - s.TotalOut
	return s, nil
}

func TestDrawerSummaryWindow(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	reader := &memoryReader{entries: []Entry{
		{ID: "1", OccurredAt: day1, Direction: DirectionIn, Amount: 500},
		{ID: "2", OccurredAt: day1, Direction: DirectionOut, Amount: 230},
		{ID: "3", OccurredAt: day2, Direction: DirectionIn, Amount: 800},
	}}
	svc := NewService(reader)

	summary, err := svc.DrawerSummary(context.Background(), ListFilter{
		From: day1.Add(-time.Hour), To: day1.Add(time.Hour),
	})
	require.NoError(t, err)
	require.InDelta(t, 500.0, summary.TotalIn, 0.001)
	require.InDelta(t, 230.0, summary.TotalOut, 0.001)
	require.InDelta(t, 270.0, summary.Net, 0.001)
}

func TestWindowEndBeforeStartRejected(t *testing.T) {
	svc := NewService(&memoryReader{})
	from := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	to := from.Add(-24 * time.Hour)

	_, err := svc.ListEntries(context.Background(), ListFilter{From: from, To: to})
	require.Error(t, err)
	_, err = svc.DrawerSummary(context.Background(), ListFilter{From: from, To: to})
	require.Error(t, err)
}
