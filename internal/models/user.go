package models

// User is an identity known to the access-control layer. Users are never
// hard-deleted here; IsActive=false makes them resolve to no permissions.
type User struct {
	BaseModel

	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Name     string  `json:"name"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
	RoleID   *string `gorm:"type:uuid;index" json:"role_id"`
	Role     *Role   `gorm:"foreignKey:RoleID" json:"role,omitempty"`

	Overrides []UserPermission `gorm:"foreignKey:UserID" json:"-"`
}
