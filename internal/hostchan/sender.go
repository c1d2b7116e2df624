// Package hostchan is the UI side of the host channel: a fire-and-forget
// send primitive, a websocket transport, and the router that hands host
// replies to per-kind callbacks.
package hostchan

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/treebridge/internal/proto"
)

var log = logging.Logger("hostchan")

// Sender delivers a serialized payload to a named host target. Delivery is
// not acknowledged and failures are not reported to the caller.
type Sender interface {
	Send(target, payload string)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(target, payload string)

func (f SenderFunc) Send(target, payload string) { f(target, payload) }

// Message is one recorded send.
type Message struct {
	Target  string
	Payload string
}

// Recorder is a Sender that keeps every message in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Send(target, payload string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Target: target, Payload: payload})
	r.mu.Unlock()
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Requests decodes every recorded payload. Undecodable payloads are skipped.
func (r *Recorder) Requests() []proto.Request {
	var out []proto.Request
	for _, m := range r.Messages() {
		req, err := proto.DecodeRequest(m.Payload)
		if err != nil {
			continue
		}
		out = append(out, req)
	}
	return out
}

// Last returns the most recent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}
