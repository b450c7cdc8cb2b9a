// Package events defines the fleet events emitted on the event bus.
//
// Available event types:
//   - VehicleChanged: a process model attribute changed
//   - RouteAssigned: a route was submitted to a vehicle
//   - CommandExecuted: a vehicle completed a movement command
//   - OrderReceived: a transport request arrived from the message bus
package events
