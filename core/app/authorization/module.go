package authorization

import (
	"errors"

	"backoffice/core/logger"
	"backoffice/core/module"
	"backoffice/core/router"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Resources and actions guarded by HasPermission
var (
	resourceTypes = []string{"table", "search", "import", "export", "sync", "role", "activity"}
	actions       = []string{"list", "read", "create", "update", "delete", "run"}
)

// defaultRoles maps each seeded role to its "resource:action" grants.
// Super Admin is resolved without a lookup and gets every permission row.
var defaultRoles = []struct {
	Role   Role
	Grants []string
}{
	{Role{Name: SuperAdminRole, Description: "Full access", IsSystem: true}, nil},
	{Role{Name: "Administrator", Description: "Manages tables, imports and syncs", IsSystem: true}, []string{
		"table:list", "table:read", "table:create", "table:update", "table:delete",
		"search:read", "import:run", "export:run", "export:list", "sync:run", "sync:list", "role:list", "activity:list",
	}},
	{Role{Name: "Manager", Description: "Edits records and exports", IsSystem: true}, []string{
		"table:list", "table:read", "table:create", "table:update", "search:read", "export:run", "export:list",
	}},
	{Role{Name: "Viewer", Description: "Read-only access", IsSystem: true}, []string{
		"table:list", "table:read", "search:read",
	}},
}

type AuthorizationModule struct {
	module.DefaultModule
	DB         *gorm.DB
	Controller *AuthorizationController
	Service    *AuthorizationService
	Logger     logger.Logger
}

func NewAuthorizationModule(db *gorm.DB, service *AuthorizationService, log logger.Logger) module.Module {
	return &AuthorizationModule{
		DB:         db,
		Controller: NewAuthorizationController(service, log),
		Service:    service,
		Logger:     log,
	}
}

func (m *AuthorizationModule) Routes(router *router.RouterGroup) {
	m.Controller.Routes(router)
}

func (m *AuthorizationModule) Migrate() error {
	if err := m.DB.AutoMigrate(m.GetModels()...); err != nil {
		return err
	}
	if err := m.seedDefaultData(); err != nil {
		m.Logger.Error("Failed to seed authorization data", logger.String("error", err.Error()))
		return err
	}
	m.Service.InvalidateRoles()
	return nil
}

func (m *AuthorizationModule) GetModels() []any {
	return []any{&Role{}, &Permission{}, &RolePermission{}}
}

// seedDefaultData creates the default roles and permissions when missing
func (m *AuthorizationModule) seedDefaultData() error {
	// silent logger: lookups of missing rows are expected here
	return m.DB.Session(&gorm.Session{Logger: gormLogger.Discard}).Transaction(func(tx *gorm.DB) error {
		byKey := make(map[string]Permission)
		for _, resource := range resourceTypes {
			for _, action := range actions {
				p := Permission{
					Name:         resource + " " + action,
					Description:  "Allows " + action + " on " + resource,
					ResourceType: resource,
					Action:       action,
				}
				if err := tx.Where("resource_type = ? AND action = ?", resource, action).FirstOrCreate(&p).Error; err != nil {
					return err
				}
				byKey[p.Key()] = p
			}
		}

		for _, def := range defaultRoles {
			role := def.Role
			err := tx.Where("name = ?", role.Name).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&role).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			grants := def.Grants
			if role.Name == SuperAdminRole {
				grants = make([]string, 0, len(byKey))
				for key := range byKey {
					grants = append(grants, key)
				}
			}
			for _, key := range grants {
				p, ok := byKey[key]
				if !ok {
					continue
				}
				link := RolePermission{RoleId: role.Id, PermissionId: p.Id}
				if err := tx.Where(&link).FirstOrCreate(&link).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
