package search

import (
	"backoffice/core/module"
	"backoffice/core/router"
)

type Module struct {
	module.DefaultModule
	Service    *SearchService
	Controller *SearchController
	Registry   *SearchRegistry
}

// Init wires the global search over the shared dataset store. A nil registry
// falls back to one built from the configured fallback policy.
func Init(deps module.Dependencies, registry *SearchRegistry) module.Module {
	if registry == nil {
		policy := FallbackLegacyKeys
		if deps.Config != nil {
			policy = ParseFallbackPolicy(deps.Config.SearchFallback)
		}
		registry = NewSearchRegistry(policy)
	}

	service := NewSearchService(deps.Datasets, deps.Logger, registry)
	controller := NewSearchController(service)

	return &Module{
		Service:    service,
		Controller: controller,
		Registry:   registry,
	}
}

func (m *Module) Routes(router *router.RouterGroup) {
	m.Controller.Routes(router)
}
