package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/permissions"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
	"github.com/freshapi/freshapi/pkg/validator"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// validateInput converts validator failures into a bad request.
func validateInput(input any) error {
	if err := validator.ValidateStruct(input); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}
	return nil
}

// loadOne fetches a single row by id, mapping a miss to NotFound(what).
func loadOne(ctx context.Context, db *gorm.DB, dest any, id, what string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.NotFound(what)
	}
	err := db.WithContext(ctx).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(what)
	}
	if err != nil {
		return fmt.Errorf("access service: load %s: %w", strings.ToLower(what), err)
	}
	return nil
}

// clearRequestCache drops memoised permission answers after a mutation so
// later checks in the same request observe it.
func clearRequestCache(ctx context.Context) {
	if loaders, ok := permissions.LoadersFromContext(ctx); ok {
		loaders.ClearCache()
	}
}
