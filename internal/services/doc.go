// Package services implements the business logic layer of the lineup server.
// It sits between the HTTP and websocket transports and the session store,
// so that loading, linking and exporting behave the same for both.
//
// # Services
//
//	- LineupService: loads datasets into sessions, links selections between
//	  the item and feature views, exports views and reloads changed sources
//	- HealthService: health, readiness and liveness checks
//	- SourceWatcher: reports writes to dataset files so sessions can reload
//
// # Loading
//
// A load resolves the source (data directory, ~ expansion, URL policy),
// fetches it once per source through a singleflight group, runs the pipeline
// steps and stores the resulting session:
//
//	svc := services.NewLineupService(session.NewStore(), dataset.NewLoader(logger), logger,
//	    services.WithDataDir("data"),
//	    services.WithHub(hub),
//	)
//	summary, err := svc.Load(ctx, services.LoadRequest{Source: "cars.csv"})
//
// # Events
//
// Every state change is pushed to the websocket hub: session:created,
// session:reloaded, session:deleted, selection:changed and layout:update.
//
// # Error Handling
//
// Services return package sentinels (session.ErrNotFound, dataset.ErrEmptyDataset, ...)
// wrapped with %w, or *errors.APIError / *errors.AppError when the failure is
// a policy decision. The HTTP error handler maps both to problem details.
// Websocket commands get *events.ProtocolError values instead.
package services
