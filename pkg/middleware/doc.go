// Package middleware instruments the HTTP side of a dragula server.
//
// The WebSocket sessions carry their own per-action spans and metrics;
// these middlewares cover the plain HTTP endpoints (health, session
// listing, model reads and snapshots). Upgrade requests pass through
// untouched.
//
// # OpenTelemetry
//
// OpenTelemetry starts one server span per request, named after the chi
// route pattern:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("dragula")))
//
// The tracer comes from the global provider. Install an SDK provider with
// otel.SetTracerProvider before building the router to export spans.
//
// # Prometheus Metrics
//
// Prometheus records, per route pattern and method:
//   - dragula_http_requests_total: requests by status code
//   - dragula_http_request_duration_seconds: request latency histogram
//
//	r.Use(middleware.Prometheus(
//	    middleware.WithRegistry(reg),
//	    middleware.WithNamespace("dragula"),
//	))
package middleware
