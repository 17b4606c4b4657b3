package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseReportDetail is the single itemization row of a report.
type ExpenseReportDetail struct {
	ID              int `gorm:"primary_key" json:"id"`
	ExpenseReportId int `gorm:"uniqueIndex;not null" json:"expense_report_id"`

	AutomobileMiles decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"automobile_miles"`
	AutomobileTolls decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"automobile_tolls"`
	Passengers      int             `gorm:"default:0" json:"passengers"`

	LodgingNights   int             `gorm:"default:0" json:"lodging_nights"`
	LodgingPerNight decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"lodging_per_night"`

	BreakfastEnroute int `gorm:"default:0" json:"breakfast_enroute"`
	LunchEnroute     int `gorm:"default:0" json:"lunch_enroute"`
	DinnerEnroute    int `gorm:"default:0" json:"dinner_enroute"`
	BreakfastOnsite  int `gorm:"default:0" json:"breakfast_onsite"`
	LunchOnsite      int `gorm:"default:0" json:"lunch_onsite"`

	TerminalCost      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"terminal_cost"`
	PublicCarrierCost decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"public_carrier_cost"`
	OtherOnsiteCost   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"other_onsite_cost"`

	BilledToHq *bool  `gorm:"not null;default:false" json:"billed_to_hq"`
	Notes      string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpenseReportDetail struct {
	AutomobileMiles decimal.Decimal `json:"automobile_miles"`
	AutomobileTolls decimal.Decimal `json:"automobile_tolls"`
	Passengers      int             `json:"passengers"`

	LodgingNights   int             `json:"lodging_nights"`
	LodgingPerNight decimal.Decimal `json:"lodging_per_night"`

	BreakfastEnroute int `json:"breakfast_enroute"`
	LunchEnroute     int `json:"lunch_enroute"`
	DinnerEnroute    int `json:"dinner_enroute"`
	BreakfastOnsite  int `json:"breakfast_onsite"`
	LunchOnsite      int `json:"lunch_onsite"`

	TerminalCost      decimal.Decimal `json:"terminal_cost"`
	PublicCarrierCost decimal.Decimal `json:"public_carrier_cost"`
	OtherOnsiteCost   decimal.Decimal `json:"other_onsite_cost"`

	BilledToHq *bool  `json:"billed_to_hq"`
	Notes      string `json:"notes"`
}

// validate rejects out-of-range quantities. Values are never clamped.
func (input *NewExpenseReportDetail) validate(reportType *ExpenseReportType) error {
	for _, v := range []decimal.Decimal{
		input.AutomobileMiles, input.AutomobileTolls, input.LodgingPerNight,
		input.TerminalCost, input.PublicCarrierCost, input.OtherOnsiteCost,
	} {
		if v.IsNegative() {
			return errors.New("amounts cannot be negative")
		}
	}
	for _, v := range []int{
		input.Passengers, input.LodgingNights,
		input.BreakfastEnroute, input.LunchEnroute, input.DinnerEnroute,
		input.BreakfastOnsite, input.LunchOnsite,
	} {
		if v < 0 {
			return errors.New("counts cannot be negative")
		}
	}
	if reportType != nil && reportType.MaxPassengers > 0 && input.Passengers > reportType.MaxPassengers {
		return errors.New("passenger count exceeds policy maximum")
	}
	return nil
}

func (input *NewExpenseReportDetail) toDetail(reportId int) ExpenseReportDetail {
	billed := false
	if input.BilledToHq != nil {
		billed = *input.BilledToHq
	}
	return ExpenseReportDetail{
		ExpenseReportId:   reportId,
		AutomobileMiles:   input.AutomobileMiles,
		AutomobileTolls:   input.AutomobileTolls,
		Passengers:        input.Passengers,
		LodgingNights:     input.LodgingNights,
		LodgingPerNight:   input.LodgingPerNight,
		BreakfastEnroute:  input.BreakfastEnroute,
		LunchEnroute:      input.LunchEnroute,
		DinnerEnroute:     input.DinnerEnroute,
		BreakfastOnsite:   input.BreakfastOnsite,
		LunchOnsite:       input.LunchOnsite,
		TerminalCost:      input.TerminalCost,
		PublicCarrierCost: input.PublicCarrierCost,
		OtherOnsiteCost:   input.OtherOnsiteCost,
		BilledToHq:        &billed,
		Notes:             input.Notes,
	}
}
