package hostchan

import (
	"encoding/json"

	"github.com/buger/jsonparser"

	"github.com/petervdpas/treebridge/internal/proto"
)

// Callback receives one decoded host reply.
type Callback func(proto.Reply)

// Kind names a callback entry point, e.g. "treeview.child".
func Kind(panel, action string) string { return panel + "." + action }

// Router maps reply kinds to callbacks. There is no request correlation
// here: a reply goes to whatever is registered for its kind.
type Router struct {
	routes map[string]Callback
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Callback)}
}

// Handle registers cb for replies with the given panel and action,
// replacing any earlier registration.
func (r *Router) Handle(panel, action string, cb Callback) {
	r.routes[Kind(panel, action)] = cb
}

// Deliver routes env and reports whether a callback ran.
func (r *Router) Deliver(env proto.ReplyEnvelope) bool {
	action, err := jsonparser.GetString(env.Body, "action")
	if err != nil {
		log.Debugf("reply from %s without action: %v", env.Panel, err)
		return false
	}
	cb, ok := r.routes[Kind(env.Panel, action)]
	if !ok {
		log.Debugf("no handler for %s", Kind(env.Panel, action))
		return false
	}
	rep, err := proto.DecodeReply(env.Body)
	if err != nil {
		log.Warnf("drop %s reply: %v", Kind(env.Panel, action), err)
		return false
	}
	cb(rep)
	return true
}

// DeliverFrame decodes a raw ReplyEnvelope frame and routes it.
func (r *Router) DeliverFrame(frame []byte) bool {
	var env proto.ReplyEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Warnf("drop frame: %v", err)
		return false
	}
	return r.Deliver(env)
}
