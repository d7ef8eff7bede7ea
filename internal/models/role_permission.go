package models

// RolePermission grants a permission to every user holding the role.
type RolePermission struct {
	BaseModel

	RoleID       string      `gorm:"type:uuid;not null;uniqueIndex:idx_role_permission,priority:1" json:"role_id"`
	PermissionID string      `gorm:"type:uuid;not null;uniqueIndex:idx_role_permission,priority:2;index" json:"permission_id"`
	Permission   *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

// TableName overrides the default table name for GORM.
func (RolePermission) TableName() string {
	return "role_permissions"
}
