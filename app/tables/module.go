package tables

import (
	"backoffice/app/models"
	"backoffice/app/upstream"
	"backoffice/core/app/search"
	"backoffice/core/logger"
	"backoffice/core/module"
	"backoffice/core/router"

	"gorm.io/gorm"
)

type Module struct {
	module.DefaultModule
	DB         *gorm.DB
	Service    *TableService
	Controller *TableController
	Logger     logger.Logger
}

func Init(deps module.Dependencies, registry *search.SearchRegistry, client *upstream.Client) module.Module {
	service := NewTableService(deps.DB, deps.Emitter, deps.Storage, deps.Logger, deps.Datasets, registry, client)
	controller := NewTableController(service, deps.Logger)

	return &Module{
		DB:         deps.DB,
		Service:    service,
		Controller: controller,
		Logger:     deps.Logger,
	}
}

func (m *Module) Routes(router *router.RouterGroup) {
	m.Controller.Routes(router)
}

// Migrate creates the tables and loads every stored table into the dataset
// store. A tag that fails to load is logged and left empty.
func (m *Module) Migrate() error {
	if err := m.DB.AutoMigrate(&models.TableRecord{}, &models.ExportFile{}); err != nil {
		return err
	}
	if err := m.Service.LoadAll(); err != nil {
		m.Logger.Warn("Some tables failed to load", logger.String("error", err.Error()))
	}
	return nil
}

func (m *Module) GetModels() []any {
	return []any{
		&models.TableRecord{},
		&models.ExportFile{},
	}
}
