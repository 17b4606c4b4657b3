package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/shopspring/decimal"
)

// ExpenseReportType is a reimbursement policy. Rates and caps apply at
// calculation time only; editing a policy never changes totals already
// stored on reports.
type ExpenseReportType struct {
	ID         int    `gorm:"primary_key" json:"id"`
	ReportCode string `gorm:"size:5;uniqueIndex;not null" json:"report_code" binding:"required"`
	Name       string `gorm:"size:255;not null" json:"name" binding:"required"`
	IsActive   *bool  `gorm:"not null;default:true" json:"is_active"`

	MileageRate          decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"mileage_rate"`
	MaxPassengers        int             `gorm:"default:0" json:"max_passengers"`
	PassengerMileageRate decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"passenger_mileage_rate"`
	MaxLodgingPerNight   decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"max_lodging_per_night"`

	MaxBreakfastDaily decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"max_breakfast_daily"`
	MaxLunchDaily     decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"max_lunch_daily"`
	MaxDinnerDaily    decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"max_dinner_daily"`
	MaxBreakfastOnsite decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"max_breakfast_onsite"`
	MaxLunchOnsite     decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"max_lunch_onsite"`

	// DailyMealLimit is carried on the policy but is not consulted by the
	// calculator. 0 means no limit.
	DailyMealLimit decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"daily_meal_limit"`

	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpenseReportType struct {
	ReportCode string `json:"report_code" binding:"required,max=5"`
	Name       string `json:"name" binding:"required"`
	IsActive   *bool  `json:"is_active"`

	MileageRate          decimal.Decimal `json:"mileage_rate"`
	MaxPassengers        int             `json:"max_passengers"`
	PassengerMileageRate decimal.Decimal `json:"passenger_mileage_rate"`
	MaxLodgingPerNight   decimal.Decimal `json:"max_lodging_per_night"`

	MaxBreakfastDaily  decimal.Decimal `json:"max_breakfast_daily"`
	MaxLunchDaily      decimal.Decimal `json:"max_lunch_daily"`
	MaxDinnerDaily     decimal.Decimal `json:"max_dinner_daily"`
	MaxBreakfastOnsite decimal.Decimal `json:"max_breakfast_onsite"`
	MaxLunchOnsite     decimal.Decimal `json:"max_lunch_onsite"`

	DailyMealLimit decimal.Decimal `json:"daily_meal_limit"`
	Description    string          `json:"description"`
}

func (obj ExpenseReportType) GetId() int {
	return obj.ID
}

// validate input for both create & update. (id = 0 for create)
func (input *NewExpenseReportType) validate(ctx context.Context, id int) error {
	if len(input.ReportCode) == 0 || len(input.ReportCode) > 5 {
		return errors.New("report code must be 1 to 5 characters")
	}
	if err := utils.ValidateUnique[ExpenseReportType](ctx, "report_code", input.ReportCode, id); err != nil {
		return errors.New("report code already in use")
	}
	for _, v := range []decimal.Decimal{
		input.MileageRate, input.PassengerMileageRate, input.MaxLodgingPerNight,
		input.MaxBreakfastDaily, input.MaxLunchDaily, input.MaxDinnerDaily,
		input.MaxBreakfastOnsite, input.MaxLunchOnsite, input.DailyMealLimit,
	} {
		if v.IsNegative() {
			return errors.New("rates and caps cannot be negative")
		}
	}
	if input.MaxPassengers < 0 {
		return errors.New("max passengers cannot be negative")
	}
	return nil
}

func CreateExpenseReportType(ctx context.Context, input *NewExpenseReportType) (*ExpenseReportType, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	reportType := ExpenseReportType{
		ReportCode:           input.ReportCode,
		Name:                 input.Name,
		IsActive:             &isActive,
		MileageRate:          input.MileageRate,
		MaxPassengers:        input.MaxPassengers,
		PassengerMileageRate: input.PassengerMileageRate,
		MaxLodgingPerNight:   input.MaxLodgingPerNight,
		MaxBreakfastDaily:    input.MaxBreakfastDaily,
		MaxLunchDaily:        input.MaxLunchDaily,
		MaxDinnerDaily:       input.MaxDinnerDaily,
		MaxBreakfastOnsite:   input.MaxBreakfastOnsite,
		MaxLunchOnsite:       input.MaxLunchOnsite,
		DailyMealLimit:       input.DailyMealLimit,
		Description:          input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&reportType).Error; err != nil {
		return nil, err
	}

	// invalidate cached list
	_ = utils.RemoveRedisList[ExpenseReportType]()

	return &reportType, nil
}

func UpdateExpenseReportType(ctx context.Context, id int, input *NewExpenseReportType) (*ExpenseReportType, error) {

	if _, err := utils.FetchModel[ExpenseReportType](ctx, id); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	update := ExpenseReportType{
		ID:                   id,
		ReportCode:           input.ReportCode,
		Name:                 input.Name,
		IsActive:             &isActive,
		MileageRate:          input.MileageRate,
		MaxPassengers:        input.MaxPassengers,
		PassengerMileageRate: input.PassengerMileageRate,
		MaxLodgingPerNight:   input.MaxLodgingPerNight,
		MaxBreakfastDaily:    input.MaxBreakfastDaily,
		MaxLunchDaily:        input.MaxLunchDaily,
		MaxDinnerDaily:       input.MaxDinnerDaily,
		MaxBreakfastOnsite:   input.MaxBreakfastOnsite,
		MaxLunchOnsite:       input.MaxLunchOnsite,
		DailyMealLimit:       input.DailyMealLimit,
		Description:          input.Description,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Model(&ExpenseReportType{ID: id}).Updates(map[string]interface{}{
		"report_code":            input.ReportCode,
		"name":                   input.Name,
		"is_active":              isActive,
		"mileage_rate":           input.MileageRate,
		"max_passengers":         input.MaxPassengers,
		"passenger_mileage_rate": input.PassengerMileageRate,
		"max_lodging_per_night":  input.MaxLodgingPerNight,
		"max_breakfast_daily":    input.MaxBreakfastDaily,
		"max_lunch_daily":        input.MaxLunchDaily,
		"max_dinner_daily":       input.MaxDinnerDaily,
		"max_breakfast_onsite":   input.MaxBreakfastOnsite,
		"max_lunch_onsite":       input.MaxLunchOnsite,
		"daily_meal_limit":       input.DailyMealLimit,
		"description":            input.Description,
	}).Error
	if err != nil {
		return nil, err
	}

	_ = utils.RemoveRedisList[ExpenseReportType]()
	_ = utils.RemoveRedisItem[ExpenseReportType](id)

	return &update, nil
}

func GetExpenseReportType(ctx context.Context, id int) (*ExpenseReportType, error) {
	cached, _ := utils.RetrieveRedis[ExpenseReportType](id)
	if cached != nil {
		return cached, nil
	}
	reportType, err := utils.FetchModel[ExpenseReportType](ctx, id)
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis[ExpenseReportType](reportType, id)
	return reportType, nil
}

// ListActiveExpenseReportTypes returns active policies, redis or db.
func ListActiveExpenseReportTypes(ctx context.Context) ([]*ExpenseReportType, error) {
	results, err := utils.RetrieveRedisList[ExpenseReportType]()
	if err != nil {
		return nil, err
	}
	if results == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).Where("is_active = ?", true).Order("report_code").Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[ExpenseReportType](results); err != nil {
			return nil, err
		}
	}
	return results, nil
}
