package app

import (
	"backoffice/core/app/activities"
	"backoffice/core/app/authorization"
	"backoffice/core/app/search"
	"backoffice/core/module"
)

// CoreModules implements module.CoreModuleProvider
type CoreModules struct {
	SearchRegistry *search.SearchRegistry
	Authorization  *authorization.AuthorizationService
	ActivityEvents []string
}

// GetCoreModules returns the core modules to initialize
func (cm *CoreModules) GetCoreModules(deps module.Dependencies) map[string]module.Module {
	modules := make(map[string]module.Module)

	if cm.Authorization != nil {
		modules["authorization"] = authorization.NewAuthorizationModule(
			deps.DB,
			cm.Authorization,
			deps.Logger,
		)
	}

	// a nil registry falls back to one built from the configured policy
	modules["search"] = search.Init(deps, cm.SearchRegistry)

	modules["activities"] = activities.Init(deps, cm.ActivityEvents...)

	return modules
}

// NewCoreModules creates a new core modules provider
func NewCoreModules(searchRegistry *search.SearchRegistry, auth *authorization.AuthorizationService, activityEvents []string) *CoreModules {
	return &CoreModules{
		SearchRegistry: searchRegistry,
		Authorization:  auth,
		ActivityEvents: activityEvents,
	}
}
