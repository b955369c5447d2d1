package activities

import (
	"backoffice/core/emitter"
	"backoffice/core/module"
	"backoffice/core/router"

	"gorm.io/gorm"
)

type Module struct {
	module.DefaultModule
	DB         *gorm.DB
	Emitter    *emitter.Emitter
	Service    *ActivityService
	Controller *ActivityController
	events     []string
}

// Init creates the activity module. Emissions of events are recorded once
// the module has been initialized.
func Init(deps module.Dependencies, events ...string) module.Module {
	service := NewActivityService(deps.DB, deps.Logger)
	controller := NewActivityController(service)

	return &Module{
		DB:         deps.DB,
		Emitter:    deps.Emitter,
		Service:    service,
		Controller: controller,
		events:     events,
	}
}

func (m *Module) Routes(router *router.RouterGroup) {
	m.Controller.Routes(router)
}

func (m *Module) Init() error {
	if m.Emitter != nil {
		m.Service.Track(m.Emitter, m.events...)
	}
	return nil
}

func (m *Module) Migrate() error {
	return m.DB.AutoMigrate(&Activity{})
}

func (m *Module) GetModels() []any {
	return []any{
		&Activity{},
	}
}
