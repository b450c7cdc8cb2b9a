package mqtt

// Handler receives the payload of a message delivered on topic.
type Handler func(topic string, payload []byte)

// Messenger is the message bus used by vehicle transports and order intake.
type Messenger interface {
	// Publish sends payload on topic with the QoS configured for kind.
	Publish(kind, topic string, payload []byte) error
	// Subscribe registers h on topic; subscriptions survive reconnects.
	Subscribe(kind, topic string, h Handler) error
	Unsubscribe(topic string) error
}

// QoS kinds.
const (
	KindCommand = "command"
	KindStatus  = "status"
	KindOrder   = "order"
)

// ConnectionWatcher is implemented by buses that report broker connection
// changes. fn receives false when the connection drops and true once it is
// re-established with subscriptions replayed. cancel removes fn.
type ConnectionWatcher interface {
	OnConnectionChange(fn func(connected bool)) (cancel func())
}
