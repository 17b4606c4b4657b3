package models_test

import (
	"testing"

	"bitbucket.org/tbphq/members_backend/models"
	"github.com/shopspring/decimal"
)

func travelPolicy() *models.ExpenseReportType {
	active := true
	return &models.ExpenseReportType{
		ID:                   1,
		ReportCode:           "TR",
		Name:                 "Travel",
		IsActive:             &active,
		MileageRate:          decimal.RequireFromString("0.35"),
		MaxPassengers:        3,
		PassengerMileageRate: decimal.RequireFromString("0.05"),
		MaxLodgingPerNight:   decimal.RequireFromString("42.00"),
		MaxBreakfastDaily:    decimal.RequireFromString("6.00"),
		MaxLunchDaily:        decimal.RequireFromString("8.00"),
		MaxDinnerDaily:       decimal.RequireFromString("15.00"),
		MaxBreakfastOnsite:   decimal.RequireFromString("5.00"),
		MaxLunchOnsite:       decimal.RequireFromString("7.00"),
	}
}

func TestCalculateReportTotal_NilInputs(t *testing.T) {
	if got := models.CalculateReportTotal(nil, travelPolicy()); !got.IsZero() {
		t.Fatalf("nil detail: expected 0, got %s", got)
	}
	if got := models.CalculateReportTotal(&models.ExpenseReportDetail{}, nil); !got.IsZero() {
		t.Fatalf("nil policy: expected 0, got %s", got)
	}
}

func TestCalculateReportTotal_Mileage(t *testing.T) {
	detail := &models.ExpenseReportDetail{
		AutomobileMiles: decimal.NewFromInt(100),
	}
	got := models.CalculateReportTotal(detail, travelPolicy())
	if want := decimal.RequireFromString("35.00"); !got.Equal(want) {
		t.Fatalf("driver only: expected %s, got %s", want, got)
	}

	detail.Passengers = 2
	got = models.CalculateReportTotal(detail, travelPolicy())
	// 100*0.35 + 100*2*0.05
	if want := decimal.RequireFromString("45.00"); !got.Equal(want) {
		t.Fatalf("with passengers: expected %s, got %s", want, got)
	}
}

func TestCalculateReportTotal_LodgingCappedPerNight(t *testing.T) {
	over := &models.ExpenseReportDetail{
		LodgingNights:   3,
		LodgingPerNight: decimal.RequireFromString("55.00"),
	}
	got := models.CalculateReportTotal(over, travelPolicy())
	if want := decimal.RequireFromString("126.00"); !got.Equal(want) {
		t.Fatalf("over cap: expected 3*42=%s, got %s", want, got)
	}

	under := &models.ExpenseReportDetail{
		LodgingNights:   3,
		LodgingPerNight: decimal.RequireFromString("40.00"),
	}
	got = models.CalculateReportTotal(under, travelPolicy())
	if want := decimal.RequireFromString("120.00"); !got.Equal(want) {
		t.Fatalf("under cap: expected actual %s, got %s", want, got)
	}
}

func TestCalculateReportTotal_MealsReimburseAtCap(t *testing.T) {
	detail := &models.ExpenseReportDetail{
		BreakfastEnroute: 2,
		LunchEnroute:     1,
		DinnerEnroute:    3,
		BreakfastOnsite:  1,
		LunchOnsite:      2,
	}
	got := models.CalculateReportTotal(detail, travelPolicy())
	// 2*6 + 1*8 + 3*15 + 1*5 + 2*7
	if want := decimal.RequireFromString("84.00"); !got.Equal(want) {
		t.Fatalf("meals: expected %s, got %s", want, got)
	}
}

func TestCalculateReportTotal_DailyMealLimitIgnored(t *testing.T) {
	detail := &models.ExpenseReportDetail{
		BreakfastEnroute: 2,
		DinnerEnroute:    2,
	}
	policy := travelPolicy()
	base := models.CalculateReportTotal(detail, policy)

	policy.DailyMealLimit = decimal.RequireFromString("1.00")
	limited := models.CalculateReportTotal(detail, policy)
	if !base.Equal(limited) {
		t.Fatalf("daily meal limit must not affect total: %s vs %s", base, limited)
	}
}

func TestCalculateReportTotal_PassThroughCosts(t *testing.T) {
	detail := &models.ExpenseReportDetail{
		AutomobileTolls:   decimal.RequireFromString("12.50"),
		TerminalCost:      decimal.RequireFromString("30.00"),
		PublicCarrierCost: decimal.RequireFromString("199.99"),
		OtherOnsiteCost:   decimal.RequireFromString("7.25"),
	}
	got := models.CalculateReportTotal(detail, travelPolicy())
	if want := decimal.RequireFromString("249.74"); !got.Equal(want) {
		t.Fatalf("pass-through: expected %s, got %s", want, got)
	}
}

func TestCalculateReportTotal_RoundsHalfUpToCents(t *testing.T) {
	policy := travelPolicy()
	policy.MileageRate = decimal.RequireFromString("0.3335")
	detail := &models.ExpenseReportDetail{
		AutomobileMiles: decimal.NewFromInt(1),
	}
	got := models.CalculateReportTotal(detail, policy)
	if want := decimal.RequireFromString("0.33"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	policy.MileageRate = decimal.RequireFromString("0.335")
	got = models.CalculateReportTotal(detail, policy)
	if want := decimal.RequireFromString("0.34"); !got.Equal(want) {
		t.Fatalf("half cent rounds up: expected %s, got %s", want, got)
	}
}

func TestCalculateReportTotal_Deterministic(t *testing.T) {
	detail := &models.ExpenseReportDetail{
		AutomobileMiles:  decimal.RequireFromString("123.40"),
		AutomobileTolls:  decimal.RequireFromString("4.75"),
		Passengers:       1,
		LodgingNights:    2,
		LodgingPerNight:  decimal.RequireFromString("48.00"),
		BreakfastEnroute: 2,
		DinnerEnroute:    2,
	}
	policy := travelPolicy()

	first := models.CalculateReportTotal(detail, policy)
	for i := 0; i < 100; i++ {
		if got := models.CalculateReportTotal(detail, policy); !got.Equal(first) {
			t.Fatalf("run %d produced %s, first run produced %s", i, got, first)
		}
	}
}
