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

// outbox is a fixed-capacity FIFO holding messages published while the
// broker is unreachable. When full, the oldest message is dropped.
// Not safe for concurrent use — caller must synchronize.
type outbox struct {
	buf      []queuedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  bool // a message was dropped since the last flush
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		buf:      make([]queuedMsg, capacity),
		capacity: capacity,
	}
}

func (o *outbox) add(msg queuedMsg) {
	if o.count == o.capacity {
		if !o.dropped {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.capacity)
			o.dropped = true
		}
		// head already points at the oldest entry
		o.buf[o.head] = msg
		o.head = (o.head + 1) % o.capacity
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % o.capacity
	o.count++
}

// flush returns the queued messages oldest-first and empties the
// outbox.
func (o *outbox) flush() []queuedMsg {
	if o.count == 0 {
		return nil
	}

	result := make([]queuedMsg, o.count)
	start := (o.head - o.count + o.capacity) % o.capacity
	for i := 0; i < o.count; i++ {
		result[i] = o.buf[(start+i)%o.capacity]
	}

	o.count = 0
	o.head = 0
	o.dropped = false
	return result
}

func (o *outbox) len() int {
	return o.count
}
