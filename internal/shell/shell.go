// Package shell wires the tree view and the editor bridge to a host
// connection and runs them on a single event loop.
package shell

import (
	"context"

	"github.com/cockroachdb/errors"
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/treebridge/internal/dom"
	"github.com/petervdpas/treebridge/internal/editor"
	"github.com/petervdpas/treebridge/internal/hostchan"
	"github.com/petervdpas/treebridge/internal/proto"
	"github.com/petervdpas/treebridge/internal/treeview"
)

var log = logging.Logger("shell")

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("shell stopped")

const classHidden = "hidden"

// Shell owns the document and every handler that touches it. Handlers run
// only on the goroutine executing Run.
type Shell struct {
	doc    *dom.Document
	host   hostchan.Sender
	view   *treeview.View
	bridge *editor.Bridge
	router *hostchan.Router

	events chan func()
	done   chan struct{}

	lastError proto.Reply
	preview   proto.Reply
	lastSaved proto.Reply
}

// New builds a shell over a fresh document.
func New(host hostchan.Sender, opts ...treeview.Option) (*Shell, error) {
	doc := dom.New()
	view, err := treeview.New(doc, host, opts...)
	if err != nil {
		return nil, err
	}
	s := &Shell{
		doc:    doc,
		host:   host,
		view:   view,
		bridge: editor.NewBridge(host, proto.TargetTreeView),
		router: hostchan.NewRouter(),
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}
	s.routes()
	return s, nil
}

func (s *Shell) routes() {
	t := proto.TargetTreeView
	s.router.Handle(t, proto.ReplyRoot, func(rep proto.Reply) {
		s.view.Render(rep.Tree, "")
	})
	s.router.Handle(t, proto.ReplyChild, func(rep proto.Reply) {
		s.view.InsertChildTree(rep)
	})
	s.router.Handle(t, proto.ReplyFile, func(rep proto.Reply) {
		s.bridge.HandleFileLoad(editor.FromReply(rep))
	})
	s.router.Handle(t, proto.ReplySaved, func(rep proto.Reply) {
		s.lastSaved = rep
		log.Infof("saved %s", rep.File)
	})
	s.router.Handle(t, proto.ReplyPreview, func(rep proto.Reply) {
		s.preview = rep
	})
	s.router.Handle(t, proto.ReplyError, func(rep proto.Reply) {
		if rep.Request == proto.ActionListChild && s.view.FailExpansion(rep) {
			return
		}
		s.lastError = rep
		log.Warnf("%s %q: %s", rep.Request, rep.Path, rep.Message)
	})
}

// Run processes events until ctx ends. Only one Run may be active.
func (s *Shell) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.events:
			fn()
		}
	}
}

func (s *Shell) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// Do runs fn on the event loop and waits for it to finish.
func (s *Shell) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(ran) }:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver queues a host reply for the loop. Safe from any goroutine.
func (s *Shell) Deliver(env proto.ReplyEnvelope) {
	s.post(func() { s.router.Deliver(env) })
}

// Start requests the root listing and marks the editor ready with surface.
func (s *Shell) Start(surface editor.Surface) {
	s.post(func() {
		s.view.RequestRootTree()
		s.bridge.Ready(surface)
	})
}

// Click queues a click on the tree node at p.
func (s *Shell) Click(p string) {
	s.post(func() {
		if !s.view.Click(p) {
			log.Debugf("click on %q ignored", p)
		}
	})
}

// Save queues a save of the open file.
func (s *Shell) Save() {
	s.post(func() { s.bridge.Save() })
}

// Preview asks the host to render the open file.
func (s *Shell) Preview() {
	s.post(func() {
		p := s.bridge.OpenPath()
		if p == "" {
			return
		}
		s.host.Send(proto.TargetTreeView, proto.PreviewFile(0, p).Encode())
	})
}

// ToggleSidebar flips the sidebar's visibility and tells the host.
func (s *Shell) ToggleSidebar() {
	s.post(func() {
		if sb := s.doc.ByID(dom.IDSidebar); sb != nil {
			dom.ToggleClass(sb, classHidden)
		}
		s.host.Send(proto.TargetSidebar, proto.Request{Action: "toggle"}.Encode())
	})
}

// The accessors below must be called on the loop, from inside Do.

func (s *Shell) Document() *dom.Document { return s.doc }
func (s *Shell) View() *treeview.View { return s.view }
func (s *Shell) Bridge() *editor.Bridge { return s.bridge }
func (s *Shell) Router() *hostchan.Router { return s.router }

// LastError is the most recent error reply not shown in the tree.
func (s *Shell) LastError() proto.Reply { return s.lastError }

// LastPreview is the most recent preview reply.
func (s *Shell) LastPreview() proto.Reply { return s.preview }

// LastSaved is the most recent save acknowledgement.
func (s *Shell) LastSaved() proto.Reply { return s.lastSaved }

// SidebarVisible reports whether the sidebar is shown.
func (s *Shell) SidebarVisible() bool {
	sb := s.doc.ByID(dom.IDSidebar)
	return sb != nil && !dom.HasClass(sb, classHidden)
}
