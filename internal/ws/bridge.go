package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nexpos/engine/internal/store"
)

// Bridge pipes store watches into hub broadcasts: one goroutine per
// watchable collection, each pushing whole-collection snapshots to its
// topic room. Returns after starting; cancel ctx to stop.
func Bridge(ctx context.Context, hub *Hub, st store.Store) error {
	for topic := range watchableTopics {
		ch, err := st.Watch(ctx, topic)
		if err != nil {
			return err
		}
		go func(topic string, ch <-chan map[string]json.RawMessage) {
			for snap := range ch {
				payload, err := json.Marshal(snap)
				if err != nil {
					log.Printf("ERROR: bridge marshal %s: %v", topic, err)
					continue
				}
				hub.BroadcastTopic(topic, payload)
			}
		}(topic, ch)
	}
	return nil
}
