package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/freshapi/freshapi/internal/models"
)

type levelRow struct {
	UserID string
	Level  int
}

// RoleLevel returns the level of the user's role, or 0 when the user is
// missing or role-less. Activation does not change rank: an inactive user or
// role loses capabilities through resolution, never seniority.
func (r *Resolver) RoleLevel(ctx context.Context, userID string) (int, error) {
	levels, err := r.roleLevels(ctx, []string{userID})
	if err != nil {
		return 0, err
	}
	return levels[strings.TrimSpace(userID)], nil
}

// CanManage reports whether manager outranks target. The comparison is
// strict, so equal levels and self-management are both rejected.
func (r *Resolver) CanManage(ctx context.Context, managerID, targetID string) (bool, error) {
	managerID = strings.TrimSpace(managerID)
	targetID = strings.TrimSpace(targetID)
	if managerID == "" || managerID == targetID {
		return false, nil
	}

	levels, err := r.roleLevels(ctx, []string{managerID, targetID})
	if err != nil {
		return false, err
	}
	return levels[managerID] > levels[targetID], nil
}

func (r *Resolver) roleLevels(ctx context.Context, userIDs []string) (map[string]int, error) {
	ids := uniqueIDs(userIDs)
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []levelRow
	err := r.db.WithContext(ensureContext(ctx)).
		Model(&models.User{}).
		Select("users.id AS user_id, roles.level AS level").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("permission resolver: load role levels: %w", err)
	}
	for _, row := range rows {
		out[row.UserID] = row.Level
	}
	return out, nil
}
