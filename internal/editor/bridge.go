// Package editor hands file content from the host to the embedded editor
// and sends it back on save.
package editor

import (
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/treebridge/internal/hostchan"
	"github.com/petervdpas/treebridge/internal/langdetect"
	"github.com/petervdpas/treebridge/internal/proto"
)

var log = logging.Logger("editor")

// FileLoad is the payload of a file-content reply.
type FileLoad struct {
	Path    string
	Content string
	Binary  bool
}

// FromReply converts a host file reply.
func FromReply(rep proto.Reply) FileLoad {
	return FileLoad{Path: rep.Path, Content: rep.Content, Binary: rep.Binary}
}

// Bridge moves file loads into the editor surface. Loads that arrive
// before the surface is ready are queued and replayed in order by Ready.
type Bridge struct {
	host   hostchan.Sender
	target string

	surface  Surface
	queue    []FileLoad
	openPath string
	readOnly bool // open document is a binary placeholder
}

// NewBridge returns a bridge whose saves go to target on host.
func NewBridge(host hostchan.Sender, target string) *Bridge {
	if target == "" {
		target = proto.TargetTreeView
	}
	return &Bridge{host: host, target: target}
}

// HandleFileLoad applies data to the editor, or queues it while the editor
// is not initialized.
func (b *Bridge) HandleFileLoad(data FileLoad) {
	if b.surface == nil {
		b.queue = append(b.queue, data)
		log.Debugf("editor not ready, queued %q (%d pending)", data.Path, len(b.queue))
		return
	}
	b.apply(data)
}

func (b *Bridge) apply(data FileLoad) {
	lang := langdetect.Detect(data.Path)
	if data.Binary {
		lang = langdetect.PlainText
	}
	// Content is shown even if the language is refused.
	if err := b.surface.SetLanguage(lang); err != nil {
		log.Warnf("set language %s for %q: %v", lang, data.Path, err)
	}
	b.surface.SetContent(data.Content)
	b.surface.Layout()
	b.openPath = data.Path
	b.readOnly = data.Binary
}

// Ready installs the initialized surface and replays queued loads in
// arrival order. Later calls swap the surface and replay nothing.
func (b *Bridge) Ready(s Surface) {
	b.surface = s
	queued := b.queue
	b.queue = nil
	for _, data := range queued {
		b.apply(data)
	}
	if len(queued) > 0 {
		log.Debugf("replayed %d queued file loads", len(queued))
	}
}

// IsReady reports whether a surface is installed.
func (b *Bridge) IsReady() bool { return b.surface != nil }

// Queued returns the loads waiting for the editor.
func (b *Bridge) Queued() []FileLoad {
	return append([]FileLoad(nil), b.queue...)
}

// OpenPath is the path of the document currently in the editor.
func (b *Bridge) OpenPath() string { return b.openPath }

// ReadOnly reports whether the open document stands in for a binary file.
func (b *Bridge) ReadOnly() bool { return b.readOnly }

// Save sends the editor content for the open file to the host and reports
// whether a request went out. Nothing is marked saved locally. Binary
// files are never written back: the editor only holds a placeholder.
func (b *Bridge) Save() bool {
	if b.openPath == "" || b.surface == nil {
		return false
	}
	if b.readOnly {
		log.Debugf("not saving %q: binary file is read-only", b.openPath)
		return false
	}
	b.host.Send(b.target, proto.SaveFile(0, b.openPath, b.surface.Content()).Encode())
	return true
}
