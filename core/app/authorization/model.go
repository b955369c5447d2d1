package authorization

import "time"

type Role struct {
	Id          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"size:100;uniqueIndex"`
	Description string       `json:"description"`
	IsSystem    bool         `json:"is_system"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Role) TableName() string { return "roles" }

type Permission struct {
	Id           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ResourceType string    `json:"resource_type" gorm:"size:50;uniqueIndex:idx_permission_resource_action"`
	Action       string    `json:"action" gorm:"size:50;uniqueIndex:idx_permission_resource_action"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Permission) TableName() string { return "permissions" }

// Key renders the permission as "resource:action"
func (p Permission) Key() string {
	return p.ResourceType + ":" + p.Action
}

// RolePermission is the join row between roles and permissions
type RolePermission struct {
	RoleId       uint `gorm:"primaryKey"`
	PermissionId uint `gorm:"primaryKey"`
}

func (RolePermission) TableName() string { return "role_permissions" }

// MeResponse describes the authenticated caller
type MeResponse struct {
	Subject     string   `json:"subject"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}
