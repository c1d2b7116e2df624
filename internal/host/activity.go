package host

import (
	"sync"

	"github.com/petervdpas/treebridge/internal/proto"
)

// Activity is one handled message, kept for /activity.json.
type Activity struct {
	Conn   string `json:"conn"`
	Panel  string `json:"panel"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts"`
}

// activityLog keeps the most recent activities. Once full, each new entry
// replaces the oldest one.
type activityLog struct {
	mu    sync.Mutex
	slots []Activity
	next  int // slot the next entry goes to
	full  bool
}

func newActivityLog(size int) *activityLog {
	return &activityLog{slots: make([]Activity, size)}
}

func (l *activityLog) add(a Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots[l.next] = a
	l.next = (l.next + 1) % len(l.slots)
	if l.next == 0 {
		l.full = true
	}
}

// entries returns the log oldest first.
func (l *activityLog) entries() []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]Activity{}, l.slots[:l.next]...)
	}
	out := make([]Activity, 0, len(l.slots))
	out = append(out, l.slots[l.next:]...)
	return append(out, l.slots[:l.next]...)
}

// errorsOnly returns the logged activities that ended in an error reply.
func (l *activityLog) errorsOnly() []Activity {
	var out []Activity
	for _, a := range l.entries() {
		if a.Error != "" {
			out = append(out, a)
		}
	}
	return out
}

// activityFor summarizes one dispatched envelope.
func activityFor(conn string, env proto.Envelope, out proto.ReplyEnvelope, ts int64) Activity {
	a := Activity{Conn: conn, Panel: env.Panel, TS: ts}
	if req, err := proto.DecodeRequest(env.Body); err == nil {
		a.Action = req.Action
	}
	if rep, err := proto.DecodeReply(out.Body); err == nil && rep.Action == proto.ReplyError {
		a.Error = rep.Message
	}
	return a
}
