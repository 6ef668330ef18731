package mosaic

import (
	"reflect"
)

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	app := &App{
		stages:    defaultStages(),
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
	}
	for _, stage := range app.stages {
		app.systems[stage.Name] = make([]systemFn, 0)
	}
	return &AppBuilder{app: app}
}

// UseFrameRate paces Run at fps frames per second. Zero disables pacing.
func (b *AppBuilder) UseFrameRate(fps float64) *AppBuilder {
	b.app.frameRate = fps
	return b
}

// UseMaxFrames stops Run after n frames. Zero means no limit.
func (b *AppBuilder) UseMaxFrames(n uint64) *AppBuilder {
	b.app.maxFrames = n
	return b
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

func (b *AppBuilder) Build() *App {
	app := b.app
	commands := &Commands{app: app}

	for _, module := range b.modules {
		module.Install(app, commands)
	}

	return app
}
