package mosaic

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"time"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

// App is the render-side frame loop. Systems run on the goroutine that calls
// Run or Update, one stage after another.
type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	logger    Logger

	frameRate float64
	maxFrames uint64
	frame     uint64
	started   bool
	stopping  bool
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// Frame returns the number of completed frames.
func (app *App) Frame() uint64 { return app.frame }

// Run executes frames until ctx is done, a system calls Commands.Stop, or
// the frame limit is reached. Frames are paced at the configured frame rate;
// a rate of zero runs them back to back.
func (app *App) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if app.frameRate > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / app.frameRate))
		defer ticker.Stop()
		pace = ticker.C
	}

	app.Logger().Infof("app: running at %.0f fps", app.frameRate)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		app.Update()
		if app.stopping || (app.maxFrames > 0 && app.frame >= app.maxFrames) {
			app.Logger().Infof("app: stopped after %d frames", app.frame)
			return nil
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		}
	}
}

// Update runs one frame. The first call also runs the RunOnce stages.
func (app *App) Update() {
	if !app.started {
		app.started = true
		app.runStages(true)
	}
	app.runStages(false)
	app.frame++
}

func (app *App) runStages(once bool) {
	for _, stage := range app.stages {
		if stage.RunOnce != once {
			continue
		}
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("%s is not a pointer resource", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T, if installed.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("System %s takes non-pointer argument %s", funcName(systemValue), argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				funcName(systemValue),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

func funcName(v reflect.Value) string {
	return runtime.FuncForPC(v.Pointer()).Name()
}
