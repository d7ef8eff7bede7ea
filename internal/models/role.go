package models

// Role bundles permissions and carries an authority level used by the
// hierarchy check. Higher level means more authority.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	Level       int    `gorm:"not null;default:0" json:"level"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`

	Permissions []RolePermission `gorm:"foreignKey:RoleID" json:"-"`
}
