/*
Package metrics provides Prometheus metrics collection and exposition
for the resource core, plus a small health-check registry used for
liveness/readiness probes.

# Metrics

	carl_resource_operations_total{kind,operation,outcome}    counter
	carl_resource_operation_duration_seconds{kind,operation}  histogram
	carl_resource_transaction_duration_seconds{mode,outcome}  histogram
	carl_resource_live_subscriptions{kind}                    gauge
	carl_resource_subscription_lagged_total{kind}             counter
	carl_resources_total{kind}                                gauge

Handler() exposes these (plus the Go runtime collectors Prometheus
registers automatically) over HTTP for scraping.

# Health

RegisterComponent/UpdateComponent track per-component readiness;
GetHealth/GetReadiness summarize them for an HTTP health endpoint the
way cmd/carld wires one up alongside the metrics endpoint.

# Collector

The ticker-driven sampler that publishes carl_resources_total and
carl_resource_live_subscriptions lives in pkg/manager (Collector),
not here — it needs *manager.Manager and pkg/metrics must stay free
of any dependency on pkg/manager to avoid an import cycle.
*/
package metrics
