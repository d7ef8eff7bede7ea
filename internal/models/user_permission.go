package models

// UserPermission is a per-user override. IsGranted=true adds the action to the
// user's effective set, IsGranted=false removes it even when the role grants it.
type UserPermission struct {
	BaseModel

	UserID       string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_permission,priority:1" json:"user_id"`
	PermissionID string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_permission,priority:2;index" json:"permission_id"`
	Permission   *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
	IsGranted    bool        `gorm:"not null" json:"is_granted"`
}

// TableName overrides the default table name for GORM.
func (UserPermission) TableName() string {
	return "user_permissions"
}
