// Package mqtt defines the message bus contract and its wire format.
package mqtt

import (
	"encoding/json"
	"fmt"
)

// CommandMessage is published to a vehicle for every movement command.
type CommandMessage struct {
	Dest string   `json:"dest"`
	Path []string `json:"path"`
}

// StatusMessage is reported by a vehicle on its status topic. Status, Lift
// and Load use the handshake codes; Position is a point name or empty.
type StatusMessage struct {
	VehicleID string `json:"vehicleId"`
	Status    uint16 `json:"status"`
	Position  string `json:"position"`
	Lift      uint16 `json:"lift"`
	Load      uint16 `json:"load"`
}

// OrderMessage is an inbound transport request.
type OrderMessage struct {
	VehicleID   string `json:"vehicleId"`
	TargetPoint string `json:"targetPoint"`
	Operation   string `json:"operation,omitempty"`
}

// DecodeOrder parses and checks an order payload.
func DecodeOrder(payload []byte) (OrderMessage, error) {
	var o OrderMessage
	if err := json.Unmarshal(payload, &o); err != nil {
		return o, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if o.VehicleID == "" || o.TargetPoint == "" {
		return o, fmt.Errorf("%w: vehicleId and targetPoint are required", ErrInvalidOrder)
	}
	return o, nil
}
