package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publish pushes an event onto the thread's Redis channel. Every process
// subscribed to that thread, this one included, picks it up and fans it
// out to its local sockets.
func Publish(event *Event) error {
	if event == nil || event.ThreadID == "" {
		return fmt.Errorf("realtime publish: threadId required")
	}
	if redisClient == nil {
		return fmt.Errorf("realtime publish: redis client not initialised")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime publish: marshal event: %w", err)
	}

	if err := redisClient.Publish(context.Background(), event.ThreadID, string(payload)).Err(); err != nil {
		return fmt.Errorf("realtime publish: redis publish: %w", err)
	}
	return nil
}
