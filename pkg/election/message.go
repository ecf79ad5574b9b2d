package election

import (
	"fmt"
	"time"
)

// Payload is the typed body of a Message. Each protocol package declares the
// payload structs it exchanges; Type reports the tag a message carrying the
// payload is sent under.
type Payload interface {
	Type() MessageType
}

// Message is one directed protocol communication. It is a value: once built it
// is never mutated, and payloads holding slices are copied by their
// constructors.
type Message struct {
	From     NodeID
	To       NodeID
	Type     MessageType
	Payload  Payload
	SendTime time.Duration
}

func NewMessage(from, to NodeID, p Payload, now time.Duration) Message {
	return Message{
		From:     from,
		To:       to,
		Type:     p.Type(),
		Payload:  p,
		SendTime: now,
	}
}

// Broadcast addresses p to every node of a total-sized cluster except from.
func Broadcast(from NodeID, total int, p Payload, now time.Duration) []Message {
	msgs := make([]Message, 0, total-1)
	for i := 0; i < total; i++ {
		if NodeID(i) == from {
			continue
		}
		msgs = append(msgs, NewMessage(from, NodeID(i), p, now))
	}
	return msgs
}

func (m Message) String() string {
	return fmt.Sprintf("%s %d->%d %+v @%v", m.Type, m.From, m.To, m.Payload, m.SendTime)
}

// UnexpectedPayload reports a payload a protocol does not understand. Such a
// message can only come from a wiring defect, so protocols panic with it.
func UnexpectedPayload(protocol string, m Message) string {
	return fmt.Sprintf("%s: node %d got unexpected payload %T for %s", protocol, m.To, m.Payload, m.Type)
}
