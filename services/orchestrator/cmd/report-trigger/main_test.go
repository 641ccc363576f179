package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/models"
)

type stubQueue struct {
	periods []models.Period
	err     error
}

func (q *stubQueue) Enqueue(ctx context.Context, periods []models.Period) (int, error) {
	q.periods = periods
	if q.err != nil {
		return 0, q.err
	}
	return len(periods), nil
}

func TestResolvePeriods(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   TriggerInput
		want    []string
		wantErr bool
	}{
		{"Default previous month", TriggerInput{}, []string{"2025-12"}, false},
		{"Single month", TriggerInput{From: "2025-03"}, []string{"2025-03"}, false},
		{"Range", TriggerInput{From: "2025-11", To: "2026-01"}, []string{"2025-11", "2025-12", "2026-01"}, false},
		{"Reversed range", TriggerInput{From: "2025-05", To: "2025-04"}, nil, true},
		{"Bad from", TriggerInput{From: "May"}, nil, true},
		{"To without from", TriggerInput{To: "2025-04"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := resolvePeriods(tt.input, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, p := range periods {
				got = append(got, p.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler(t *testing.T) {
	q := &stubQueue{}
	queue = q
	now = func() time.Time { return time.Date(2025, 10, 1, 0, 5, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	out, err := Handler(context.Background(), TriggerInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09"}, out.Periods)
	assert.Equal(t, 1, out.Queued)

	q.err = errors.New("throttled")
	_, err = Handler(context.Background(), TriggerInput{From: "2025-01", To: "2025-02"})
	assert.ErrorContains(t, err, "throttled")
	assert.Len(t, q.periods, 2)
}
