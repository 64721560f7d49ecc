package pubsub

import "portal/internal/domain/service"

func eventAttributes(event *service.AccountEvent) map[string]string {
	attributes := map[string]string{
		"event_type": string(event.Type),
		"user_id":    event.UserID,
	}
	if event.Provider != "" {
		attributes["provider"] = event.Provider
	}
	if event.RequestID != "" {
		attributes["request_id"] = event.RequestID
	}

	return attributes
}
