package monitoring

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/database"
	"github.com/freshapi/freshapi/internal/models"
	"github.com/freshapi/freshapi/internal/permissions"
)

// DatabaseCheck pings the database handle.
func DatabaseCheck(db *gorm.DB) Check {
	return Check{
		Name: "database",
		Probe: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
	}
}

// VocabularyCheck reports down when a registered resource or action is
// missing from the database, which means the boot-time sync did not run.
func VocabularyCheck(db *gorm.DB) Check {
	return Check{
		Name: "permission_vocabulary",
		Probe: func(ctx context.Context) error {
			if db == nil {
				return fmt.Errorf("database not configured")
			}

			var rows []struct {
				Resource string
				Action   string
			}
			err := db.WithContext(ctx).
				Model(&models.Permission{}).
				Select("resources.name AS resource, permissions.action AS action").
				Joins("JOIN resources ON resources.id = permissions.resource_id").
				Scan(&rows).Error
			if err != nil {
				return err
			}

			stored := make(map[string]bool, len(rows))
			for _, row := range rows {
				stored[row.Resource+":"+row.Action] = true
			}

			var missing []string
			for name, def := range permissions.GetAll() {
				for _, action := range def.Actions {
					if key := name + ":" + action.Name; !stored[key] {
						missing = append(missing, key)
					}
				}
			}
			if len(missing) > 0 {
				sort.Strings(missing)
				return fmt.Errorf("unsynced permissions: %v", missing)
			}
			return nil
		},
	}
}
