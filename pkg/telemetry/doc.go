// Package telemetry provides the ambient observability stack for the
// reconciliation engine: structured logging via zerolog, Prometheus metrics
// for API traffic and reconciliation decisions, and OpenTelemetry tracing
// around invocations and HTTP requests.
//
// Every collector is optional. A nil *Metrics is a no-op, tracing defaults
// to a no-export provider, and loggers are plain zerolog values passed down
// explicitly; there is no package-level global state beyond the OTel
// provider registration.
package telemetry
