package module

import (
	"fmt"
	"sort"
	"sync"

	"backoffice/core/config"
	"backoffice/core/dataset"
	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/router"
	"backoffice/core/storage"

	"gorm.io/gorm"
)

// Module is the unit the application is assembled from. Modules may also
// implement Init() error, Migrate() error and Routes(*router.RouterGroup).
type Module interface {
	GetModels() []any
}

// DefaultModule gives modules no-op hooks to embed
type DefaultModule struct{}

func (DefaultModule) Init() error      { return nil }
func (DefaultModule) Migrate() error   { return nil }
func (DefaultModule) GetModels() []any { return nil }

// Dependencies are handed to every module constructor
type Dependencies struct {
	DB       *gorm.DB
	Router   *router.RouterGroup
	Logger   logger.Logger
	Emitter  *emitter.Emitter
	Storage  *storage.ActiveStorage
	Config   *config.Config
	Datasets *dataset.Store
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Module)
)

// RegisterModule records a module under name; names must be unique
func RegisterModule(name string, mod Module) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return fmt.Errorf("module %s already registered", name)
	}
	registry[name] = mod
	return nil
}

// GetModule returns a registered module
func GetModule(name string) (Module, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	mod, ok := registry[name]
	return mod, ok
}

// ResetRegistry forgets every registered module
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Module)
}

// Initializer runs the Init, Migrate and Routes hooks of a set of modules
type Initializer struct {
	logger logger.Logger
}

func NewInitializer(log logger.Logger) *Initializer {
	return &Initializer{logger: log}
}

// Initialize registers and initializes modules in name order, skipping (and
// logging) any module whose hooks fail
func (i *Initializer) Initialize(modules map[string]Module, deps Dependencies) []Module {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	var initialized []Module
	for _, name := range names {
		mod := modules[name]

		if err := RegisterModule(name, mod); err != nil {
			i.logger.Error("Failed to register module",
				logger.String("module", name),
				logger.String("error", err.Error()))
			continue
		}

		if initModule, ok := mod.(interface{ Init() error }); ok {
			if err := initModule.Init(); err != nil {
				i.logger.Error("Failed to initialize module",
					logger.String("module", name),
					logger.String("error", err.Error()))
				continue
			}
		}

		if migrator, ok := mod.(interface{ Migrate() error }); ok {
			if err := migrator.Migrate(); err != nil {
				i.logger.Error("Failed to migrate module",
					logger.String("module", name),
					logger.String("error", err.Error()))
				continue
			}
		}

		if routeModule, ok := mod.(interface{ Routes(*router.RouterGroup) }); ok && deps.Router != nil {
			routeModule.Routes(deps.Router)
		}

		initialized = append(initialized, mod)
	}

	return initialized
}
