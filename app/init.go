package app

import (
	"backoffice/app/tables"
	"backoffice/app/upstream"
	"backoffice/core/app/search"
	"backoffice/core/config"
	"backoffice/core/module"
)

// AppModules implements module.AppModuleProvider
type AppModules struct {
	Registry *search.SearchRegistry
	Upstream *upstream.Client
}

// GetAppModules returns the application modules to initialize
func (am *AppModules) GetAppModules(deps module.Dependencies) map[string]module.Module {
	modules := make(map[string]module.Module)

	modules["tables"] = tables.Init(deps, am.Registry, am.Upstream)

	return modules
}

func NewAppModules(registry *search.SearchRegistry, client *upstream.Client) *AppModules {
	return &AppModules{
		Registry: registry,
		Upstream: client,
	}
}

// GetSearchRegistry builds the table search registry with the configured
// fallback for unknown tags
func GetSearchRegistry(cfg *config.Config) *search.SearchRegistry {
	return search.NewSearchRegistry(search.ParseFallbackPolicy(cfg.SearchFallback))
}

// ActivityEvents are the table events kept in the activity log
func ActivityEvents() []string {
	return []string{
		tables.CreateRecordEvent,
		tables.UpdateRecordEvent,
		tables.DeleteRecordEvent,
		tables.ReplaceEvent,
		tables.ImportEvent,
		tables.SyncEvent,
	}
}
