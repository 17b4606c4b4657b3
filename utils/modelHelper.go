package utils

import (
	"context"

	"bitbucket.org/tbphq/members_backend/config"
)

// ModelChangeGuard is implemented by models that restrict editing once they
// reach a certain state (e.g. expense reports after submission).
type ModelChangeGuard interface {
	CheckChangeAllowed(context.Context) error
}

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// fetch model and check whether its current state still allows edits
func FetchModelForChange[T ModelChangeGuard](ctx context.Context, id int, associations ...string) (*T, error) {
	result, err := FetchModel[T](ctx, id, associations...)
	if err != nil {
		return nil, err
	}
	if err := (*result).CheckChangeAllowed(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// fetch all models from db
func FetchAllModels[T any](ctx context.Context, associations ...string) ([]*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return results, nil
}
