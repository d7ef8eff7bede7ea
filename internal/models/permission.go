package models

// Permission is an action scoped to a resource, unique per (action, resource).
type Permission struct {
	BaseModel

	Action      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_permission_action_resource,priority:1" json:"action"`
	ResourceID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_permission_action_resource,priority:2" json:"resource_id"`
	Resource    *Resource `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
}
