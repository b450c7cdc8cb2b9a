// Package infra holds the adapters behind the core interfaces: vehicle
// transports (modbus, mqtt, loopback), the zerolog logger, metrics sinks and
// the Sentry monitor. Core packages never import infra.
package infra
