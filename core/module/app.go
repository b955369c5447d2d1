package module

// AppModuleProvider supplies the dealership table modules
type AppModuleProvider interface {
	GetAppModules(deps Dependencies) map[string]Module
}

// AppOrchestrator initializes the app modules once the core is up
type AppOrchestrator struct {
	initializer *Initializer
	provider    AppModuleProvider
}

func NewAppOrchestrator(initializer *Initializer, provider AppModuleProvider) *AppOrchestrator {
	return &AppOrchestrator{
		initializer: initializer,
		provider:    provider,
	}
}

// InitializeAppModules builds the app modules and runs their hooks
func (ao *AppOrchestrator) InitializeAppModules(deps Dependencies) ([]Module, error) {
	modules := ao.provider.GetAppModules(deps)
	if len(modules) == 0 {
		return []Module{}, nil
	}
	return ao.initializer.Initialize(modules, deps), nil
}
