// Package metrics exposes Prometheus collectors for a dragula server.
//
// Metrics collected:
//   - dragula_events_total: replicated lifecycle events by bag and event
//   - dragula_model_mutations_total: list mutations by bag and kind
//   - dragula_action_duration_seconds: client action processing time
//   - dragula_action_errors_total: rejected client actions by error code
//   - dragula_active_sessions: connected sessions
//   - dragula_deferred_removals_pending: source removals still waiting
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg))
//	off := m.Observe(eventBus)
//	defer off()
//	svc := dragula.New(eventBus, dragula.WithMutationFunc(m.Mutation))
//
//	http.Handle("/metrics", metrics.Handler(reg))
package metrics
