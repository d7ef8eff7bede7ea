package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freshapi/freshapi/internal/models"
)

// Sync persists the registered vocabulary to the backing database. Existing
// rows keep their id and is_active flag; only descriptions are refreshed, so
// a deactivated resource or permission stays deactivated.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	defs := GetAll()
	if len(defs) == 0 {
		return nil
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			def := defs[name]

			record := models.Resource{Name: def.Name, Description: def.Description, IsActive: true}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("permission: sync resource %s: %w", def.Name, err)
			}

			var stored models.Resource
			if err := tx.Where("name = ?", def.Name).First(&stored).Error; err != nil {
				return fmt.Errorf("permission: reload resource %s: %w", def.Name, err)
			}

			for _, action := range def.Actions {
				perm := models.Permission{
					Action:      action.Name,
					ResourceID:  stored.ID,
					Description: action.Description,
					IsActive:    true,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "action"}, {Name: "resource_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
				}).Create(&perm).Error; err != nil {
					return fmt.Errorf("permission: sync %s.%s: %w", def.Name, action.Name, err)
				}
			}
		}
		return nil
	})
}
