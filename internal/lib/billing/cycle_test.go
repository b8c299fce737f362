package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-billing/internal/models"
)

func TestPeriodEnd(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cycle   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "monthly adds one calendar month",
			cycle: models.CycleMonthly,
			want:  time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "quarterly adds three months",
			cycle: models.CycleQuarterly,
			want:  time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "yearly adds one year",
			cycle: models.CycleYearly,
			want:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "unknown cycle is an error",
			cycle:   "weekly",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodEnd(start, tt.cycle)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodEnd_MonthOverflow(t *testing.T) {
	// 31 января + месяц нормализуется по правилам AddDate.
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	got, err := PeriodEnd(start, models.CycleMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), got)
}

func TestTrialEnd(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, TrialEnd(start, 0))
	assert.Nil(t, TrialEnd(start, -3))

	got := TrialEnd(start, 14)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *got)
}
