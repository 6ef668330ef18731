package mosaic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockModule struct {
	installed bool
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed = true
}

func TestAppBuilder_Defaults(t *testing.T) {
	app := NewAppBuilder().Build()

	if len(app.stages) != len(defaultStages()) {
		t.Errorf("Expected %d stages, got %d", len(defaultStages()), len(app.stages))
	}
	for _, stage := range app.stages {
		if _, ok := app.systems[stage.Name]; !ok {
			t.Errorf("Expected systems slot for stage %s", stage.Name)
		}
	}
	if app.frameRate != 0 || app.maxFrames != 0 {
		t.Errorf("Expected no pacing and no frame limit, got %v fps and %v frames", app.frameRate, app.maxFrames)
	}
}

func TestAppBuilder_UseModule(t *testing.T) {
	builder := NewAppBuilder()
	mockModule := &MockModule{}
	builder.UseModule(mockModule)

	if len(builder.modules) != 1 {
		t.Errorf("Expected modules to contain 1 module, got %v", len(builder.modules))
	}
	if mockModule.installed {
		t.Errorf("Expected Install to wait for Build")
	}
}

func TestAppBuilder_Build_WithMultipleModules(t *testing.T) {
	module1 := &MockModule{}
	module2 := &MockModule{}

	builder := NewAppBuilder()
	builder.UseModule(module1, module2)
	builder.Build()

	if len(builder.modules) != 2 {
		t.Errorf("Expected 2 modules, got %v", len(builder.modules))
	}
	if !module1.installed {
		t.Errorf("Expected Install to be called on the module 1, but it was not")
	}
	if !module2.installed {
		t.Errorf("Expected Install to be called on the module 2, but it was not")
	}
}

func TestAppBuilder_ModulesSeeEarlierLogger(t *testing.T) {
	logger := NewNopLogger()
	var seen Logger
	app := NewAppBuilder().
		UseModule(LoggingModule{Logger: logger}, moduleFunc(func(app *App, cmd *Commands) {
			seen = cmd.Logger()
		})).
		Build()

	assert.Equal(t, logger, app.Logger())
	assert.Equal(t, logger, seen)
}

func TestTimeModule_Fixed(t *testing.T) {
	app := NewAppBuilder().UseModule(TimeModule{Fixed: 10 * time.Millisecond}).Build()
	clock, ok := Resource[Time](app)
	require.True(t, ok)
	start := clock.Time

	app.Update()
	app.Update()

	assert.Equal(t, 10*time.Millisecond, clock.Dt)
	assert.InDelta(t, 0.01, clock.DtSeconds(), 1e-12)
	assert.Equal(t, start.Add(20*time.Millisecond), clock.Time)
}

type moduleFunc func(app *App, cmd *Commands)

func (f moduleFunc) Install(app *App, cmd *Commands) { f(app, cmd) }
