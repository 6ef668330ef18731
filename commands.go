package mosaic

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

// Stop ends Run after the current frame.
func (cmd *Commands) Stop() {
	cmd.app.stopping = true
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}
