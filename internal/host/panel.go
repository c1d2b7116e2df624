// Package host is the native side of the tree protocol: panels that answer
// UI requests against the workspace, and the websocket server that carries
// them.
package host

import (
	"context"
	"encoding/json"
	"sort"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/treebridge/internal/proto"
)

var log = logging.Logger("host")

// Panel answers messages addressed to one target name. The returned value
// is marshaled as the reply body.
type Panel interface {
	Name() string
	OnMessage(ctx context.Context, body string) any
}

// Registry dispatches envelopes to panels by name.
type Registry struct {
	panels map[string]Panel
}

func NewRegistry(panels ...Panel) *Registry {
	r := &Registry{panels: make(map[string]Panel)}
	for _, p := range panels {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing a panel with the same name.
func (r *Registry) Register(p Panel) {
	r.panels[p.Name()] = p
}

// Names lists the registered panels, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.panels))
	for name := range r.panels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch hands env to its panel. An unknown panel gets an empty object.
func (r *Registry) Dispatch(ctx context.Context, env proto.Envelope) proto.ReplyEnvelope {
	out := proto.ReplyEnvelope{Panel: env.Panel, Body: json.RawMessage("{}")}
	p, ok := r.panels[env.Panel]
	if !ok {
		log.Debugf("message for unknown panel %q", env.Panel)
		return out
	}
	b, err := json.Marshal(p.OnMessage(ctx, env.Body))
	if err != nil {
		log.Warnf("encode %s reply: %v", env.Panel, err)
		return out
	}
	out.Body = b
	return out
}
