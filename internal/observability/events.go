package observability

import "context"

// Publisher is the slice of the event bus this package needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent publishes through the installed publisher; a missing
// publisher is a no-op so callers never gate on eventing being configured.
func PublishEvent(ctx context.Context, routingKey string, message interface{}) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, message)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
