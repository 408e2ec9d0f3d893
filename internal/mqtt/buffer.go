package mqtt

import "log"

// queuedMsg stores a serialized MQTT message for replay once the
// broker connection comes back.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue is a bounded FIFO holding messages published while
// disconnected. When the bound is hit the oldest message is dropped.
// Not safe for concurrent use, the publisher mutex guards it.
type offlineQueue struct {
	items []queuedMsg
	bound int
	// lossy is set when a message has been dropped since the last
	// drain, so the drop is logged once per outage rather than once
	// per message.
	lossy bool
}

func newOfflineQueue(bound int) *offlineQueue {
	return &offlineQueue{bound: bound}
}

func (q *offlineQueue) push(msg queuedMsg) {
	if len(q.items) == q.bound {
		if !q.lossy {
			log.Printf("mqtt: offline queue full (%d messages), dropping oldest", q.bound)
			q.lossy = true
		}
		copy(q.items, q.items[1:])
		q.items[q.bound-1] = msg
		return
	}
	q.items = append(q.items, msg)
}

// drain returns all queued messages in publish order and empties the
// queue.
func (q *offlineQueue) drain() []queuedMsg {
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	q.lossy = false
	return out
}

func (q *offlineQueue) len() int {
	return len(q.items)
}
