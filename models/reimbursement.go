package models

import "github.com/shopspring/decimal"

// CalculateReportTotal derives the reimbursable total of a report from its
// itemized detail and policy. The function is deterministic and free of
// side effects; it is recomputed inside every transaction that saves the
// detail or the report, so the stored total is never authoritative input.
//
// Lodging is capped per night, meals per occurrence. Tolls, terminal,
// public carrier and other on-site costs pass through uncapped. The
// policy's daily meal limit is intentionally not consulted here.
func CalculateReportTotal(detail *ExpenseReportDetail, reportType *ExpenseReportType) decimal.Decimal {
	if detail == nil || reportType == nil {
		return decimal.Zero
	}

	total := decimal.Zero

	// mileage: driver rate plus a per-passenger increment
	passengers := decimal.NewFromInt(int64(detail.Passengers))
	mileage := detail.AutomobileMiles.Mul(reportType.MileageRate).
		Add(detail.AutomobileMiles.Mul(passengers).Mul(reportType.PassengerMileageRate))
	total = total.Add(mileage)

	total = total.Add(detail.AutomobileTolls)

	// lodging: actual nightly cost, capped at the policy's nightly maximum
	nights := decimal.NewFromInt(int64(detail.LodgingNights))
	lodgingActual := nights.Mul(detail.LodgingPerNight)
	lodgingCapped := nights.Mul(reportType.MaxLodgingPerNight)
	if lodgingActual.LessThan(lodgingCapped) {
		total = total.Add(lodgingActual)
	} else {
		total = total.Add(lodgingCapped)
	}

	// meals reimburse at the per-meal cap, not at actual cost
	total = total.Add(decimal.NewFromInt(int64(detail.BreakfastEnroute)).Mul(reportType.MaxBreakfastDaily))
	total = total.Add(decimal.NewFromInt(int64(detail.LunchEnroute)).Mul(reportType.MaxLunchDaily))
	total = total.Add(decimal.NewFromInt(int64(detail.DinnerEnroute)).Mul(reportType.MaxDinnerDaily))
	total = total.Add(decimal.NewFromInt(int64(detail.BreakfastOnsite)).Mul(reportType.MaxBreakfastOnsite))
	total = total.Add(decimal.NewFromInt(int64(detail.LunchOnsite)).Mul(reportType.MaxLunchOnsite))

	total = total.Add(detail.TerminalCost)
	total = total.Add(detail.PublicCarrierCost)
	total = total.Add(detail.OtherOnsiteCost)

	// round half-up to cents
	return total.Round(2)
}
