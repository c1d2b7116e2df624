package host

import (
	"context"

	"github.com/petervdpas/treebridge/internal/proto"
)

// SidebarPanel acknowledges sidebar visibility changes. The UI owns the
// actual state.
type SidebarPanel struct{}

func (SidebarPanel) Name() string { return proto.TargetSidebar }

func (SidebarPanel) OnMessage(_ context.Context, body string) any {
	log.Debugf("sidebar: %s", body)
	return map[string]string{"result": "ok"}
}
