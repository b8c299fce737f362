// Package billing содержит календарную арифметику биллинговых периодов.
package billing

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// PeriodEnd возвращает окончание одного биллингового периода, начатого в start:
// monthly добавляет один календарный месяц, quarterly — три, yearly — год.
func PeriodEnd(start time.Time, cycle string) (time.Time, error) {
	switch cycle {
	case models.CycleMonthly:
		return start.AddDate(0, 1, 0), nil
	case models.CycleQuarterly:
		return start.AddDate(0, 3, 0), nil
	case models.CycleYearly:
		return start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown billing cycle: %q", cycle)
	}
}

// TrialEnd возвращает дату окончания пробного периода или nil, если он не предусмотрен.
func TrialEnd(start time.Time, trialDays int) *time.Time {
	if trialDays <= 0 {
		return nil
	}
	end := start.AddDate(0, 0, trialDays)
	return &end
}
