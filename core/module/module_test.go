package module

import (
	"errors"
	"testing"

	"backoffice/core/logger"
	"backoffice/core/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModule struct {
	DefaultModule
	name    string
	initErr error
	calls   *[]string
}

func (m *recordingModule) Init() error {
	*m.calls = append(*m.calls, m.name+":init")
	return m.initErr
}

func (m *recordingModule) Migrate() error {
	*m.calls = append(*m.calls, m.name+":migrate")
	return nil
}

func (m *recordingModule) Routes(*router.RouterGroup) {
	*m.calls = append(*m.calls, m.name+":routes")
}

type staticProvider map[string]Module

func (p staticProvider) GetCoreModules(Dependencies) map[string]Module { return p }
func (p staticProvider) GetAppModules(Dependencies) map[string]Module  { return p }

func TestInitializeRunsHooksInNameOrder(t *testing.T) {
	ResetRegistry()
	t.Cleanup(ResetRegistry)

	var calls []string
	modules := map[string]Module{
		"tables": &recordingModule{name: "tables", calls: &calls},
		"search": &recordingModule{name: "search", calls: &calls},
	}
	deps := Dependencies{Logger: logger.Nop(), Router: router.New().Group("/api")}

	got := NewInitializer(logger.Nop()).Initialize(modules, deps)
	require.Len(t, got, 2)
	assert.Equal(t, []string{
		"search:init", "search:migrate", "search:routes",
		"tables:init", "tables:migrate", "tables:routes",
	}, calls)

	_, ok := GetModule("search")
	assert.True(t, ok)
}

func TestInitializeSkipsFailingModule(t *testing.T) {
	ResetRegistry()
	t.Cleanup(ResetRegistry)

	var calls []string
	modules := map[string]Module{
		"broken": &recordingModule{name: "broken", calls: &calls, initErr: errors.New("no db")},
	}
	got := NewInitializer(logger.Nop()).Initialize(modules, Dependencies{Logger: logger.Nop()})
	assert.Empty(t, got)
	assert.Equal(t, []string{"broken:init"}, calls)
}

func TestRegisterModuleRejectsDuplicates(t *testing.T) {
	ResetRegistry()
	t.Cleanup(ResetRegistry)

	require.NoError(t, RegisterModule("search", DefaultModule{}))
	assert.Error(t, RegisterModule("search", DefaultModule{}))
}

func TestOrchestrators(t *testing.T) {
	ResetRegistry()
	t.Cleanup(ResetRegistry)

	var calls []string
	initializer := NewInitializer(logger.Nop())
	deps := Dependencies{Logger: logger.Nop()}

	core, err := NewCoreOrchestrator(initializer, staticProvider{"auth": &recordingModule{name: "auth", calls: &calls}}).InitializeCoreModules(deps)
	require.NoError(t, err)
	assert.Len(t, core, 1)

	app, err := NewAppOrchestrator(initializer, staticProvider{}).InitializeAppModules(deps)
	require.NoError(t, err)
	assert.Empty(t, app)
}
