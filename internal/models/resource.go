package models

// Resource is a namespace under which permission actions are defined.
type Resource struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Permissions []Permission `gorm:"foreignKey:ResourceID" json:"permissions,omitempty"`
}
