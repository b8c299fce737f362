package models

import "time"

// Периоды биллинга, доступные для планов.
const (
	CycleMonthly   = "monthly"
	CycleQuarterly = "quarterly"
	CycleYearly    = "yearly"
)

// Feature описывает именованную возможность, входящую в план.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Plan представляет тарифное предложение. Административные правки плана
// не затрагивают существующие подписки: цена и валюта снапшотятся
// в подписку в момент её создания.
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`         // Цена за период, неотрицательная
	Currency     string    `json:"currency"`      // ISO-код валюты, верхний регистр
	BillingCycle string    `json:"billing_cycle"` // monthly, quarterly или yearly
	MaxSeats     int       `json:"max_seats"`
	Features     []Feature `json:"features"`
	TrialDays    int       `json:"trial_days"`
	IsActive     bool      `json:"is_active"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// DummyPlan используется для приёма данных плана из JSON-запроса
// при создании и административном редактировании.
type DummyPlan struct {
	Name         string    `json:"name" validate:"required"`
	Description  string    `json:"description" validate:"required"`
	Price        float64   `json:"price" validate:"gte=0"`
	Currency     string    `json:"currency" validate:"required,len=3"`
	BillingCycle string    `json:"billing_cycle" validate:"required,oneof=monthly quarterly yearly"`
	MaxSeats     int       `json:"max_seats" validate:"gte=1"`
	Features     []Feature `json:"features" validate:"omitempty"`
	TrialDays    int       `json:"trial_days" validate:"gte=0"`
	SortOrder    int       `json:"sort_order" validate:"gte=0"`
}
