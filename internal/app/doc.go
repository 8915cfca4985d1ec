// Package app wires configuration, logging, telemetry, the websocket hub and
// the lineup service into an HTTP server and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, config.yaml and LINEUP_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the websocket hub, the optional source watcher and the lineup service
//	4. Set up middleware and routes
//	5. Start the hub, load the default dataset and start serving
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM and then shuts down the server, the
// hub, the source watcher and the telemetry providers. Initialization
// errors are returned to the caller; the package never calls os.Exit.
package app
