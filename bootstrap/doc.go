// Package bootstrap runs a service's lifecycle: typed configuration,
// logger initialization, start and stop hooks, and signal-driven
// cancellation of the serving task.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.OnStart(checkDependencies)
//	app.OnStop(releaseResources)
//	return app.RunTask(ctx, serve)
package bootstrap
