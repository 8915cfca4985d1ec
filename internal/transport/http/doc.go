// Package http implements the HTTP handlers of the lineup server. Handlers
// stay thin: they decode and validate requests, call a service, and render
// the result.
//
// # Routes
//
//	GET    /api/sessions                               list sessions
//	POST   /api/sessions                               load a source (JSON) or upload (multipart)
//	GET    /api/sessions/{id}                          session summary
//	DELETE /api/sessions/{id}                          close a session
//	POST   /api/sessions/{id}/relayout                 bump the layout revision
//	GET    /api/sessions/{id}/views/{side}             items or features snapshot
//	POST   /api/sessions/{id}/views/{side}/selection   select rows and link the other view
//	GET    /api/sessions/{id}/views/{side}/export      csv or xlsx download
//	GET    /api/datasets                               dataset files in the data directory
//	POST   /api/datasets/reload                        reload sessions of a source
//	POST   /api/describe                               describe a source without a session
//
// # Error Handling
//
// All errors are rendered as RFC 7807 Problem Details by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/session/not-found",
//	    "title": "Session Not Found",
//	    "status": 404,
//	    "detail": "session not found",
//	    "instance": "/api/sessions/abc"
//	}
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces in session_service_interface.go.
package http
