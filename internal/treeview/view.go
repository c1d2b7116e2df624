// Package treeview renders a lazily expanded file tree into the shell
// document and talks to the host's treeview panel.
//
// Folders render with an empty children container; their listing is only
// requested when the folder is opened. At most one expansion is in flight:
// opening another folder before the reply arrives overwrites the pending
// slot, and the superseded reply is dropped when it can be recognized.
package treeview

import (
	"github.com/cockroachdb/errors"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/net/html"

	"github.com/petervdpas/treebridge/internal/dom"
	"github.com/petervdpas/treebridge/internal/hostchan"
	"github.com/petervdpas/treebridge/internal/proto"
)

var log = logging.Logger("treeview")

var ErrNoContainer = errors.New("file tree container not found")

const (
	classFolder   = "tree-folder"
	classNode     = "tree-node"
	classFile     = "tree-file"
	classChildren = "tree-children"
	classArrow    = "tree-arrow"
	classLabel    = "tree-label"
	classIcon     = "material-icons"
	classOpen     = "open"
	classError    = "tree-error"

	ArrowClosed = "chevron_right"
	ArrowOpen   = "expand_more"
	iconFolder  = "folder"
	iconFile    = "insert_drive_file"

	boundAttr = "data-bound"
)

// pending is the single in-flight expansion.
type pending struct {
	id        uint64
	path      string
	container *html.Node
}

// View owns the rendered tree, the open/closed state stored on its
// elements, and the pending expansion slot.
type View struct {
	container *html.Node
	host      hostchan.Sender
	target    string
	withIDs   bool

	lastID  uint64
	pending *pending
}

type Option func(*View)

// WithTarget sets the host panel requests are sent to.
func WithTarget(target string) Option {
	return func(v *View) { v.target = target }
}

// WithoutRequestIDs sends requests without ids, for hosts that predate
// them. Stale replies can then only be recognized by their folder field.
func WithoutRequestIDs() Option {
	return func(v *View) { v.withIDs = false }
}

// New binds a view to the document's file-tree container. A document
// without the container is a programming error and yields ErrNoContainer.
func New(doc *dom.Document, host hostchan.Sender, opts ...Option) (*View, error) {
	c := doc.ByID(dom.IDFileTree)
	if c == nil {
		return nil, ErrNoContainer
	}
	v := &View{
		container: c,
		host:      host,
		target:    proto.TargetTreeView,
		withIDs:   true,
	}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Container is the element the tree renders into.
func (v *View) Container() *html.Node { return v.container }

// JoinPath is the canonical path rule: names joined with "/", relative to
// the tree root.
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func (v *View) id() uint64 {
	if !v.withIDs {
		return 0
	}
	v.lastID++
	return v.lastID
}

func (v *View) send(req proto.Request) {
	v.host.Send(v.target, req.Encode())
}

// RequestRootTree asks the host for the top-level listing. Rendering
// happens when the root reply arrives.
func (v *View) RequestRootTree() {
	v.send(proto.ListRoot(v.id()))
}

// Render replaces the whole tree with tree. Entries are given paths below
// basePath. Any pending expansion pointed into the old content and is
// dropped.
func (v *View) Render(tree *proto.Node, basePath string) {
	if v.pending != nil {
		log.Debugf("render replaces tree, dropping pending expansion of %q", v.pending.path)
		v.pending = nil
	}
	v.renderInto(v.container, tree, basePath)
	v.attachEvents()
}

func (v *View) renderInto(container *html.Node, tree *proto.Node, basePath string) {
	dom.Clear(container)
	tree.Each(func(name string, child *proto.Node) {
		p := JoinPath(basePath, name)
		if child.IsFolder() {
			dom.Append(container, folderElement(name, p))
			return
		}
		dom.Append(container, fileElement(name, p))
	})
}

func folderElement(name, p string) *html.Node {
	header := dom.Append(dom.El("div", "class", classNode, dom.PathAttr, p),
		dom.Append(dom.El("span", "class", classArrow+" "+classIcon), dom.Text(ArrowClosed)),
		dom.Append(dom.El("span", "class", classIcon), dom.Text(iconFolder)),
		dom.Append(dom.El("span", "class", classLabel), dom.Text(name)),
	)
	// Children are never pre-rendered.
	return dom.Append(dom.El("div", "class", classFolder), header, dom.El("div", "class", classChildren))
}

func fileElement(name, p string) *html.Node {
	return dom.Append(dom.El("div", "class", classNode+" "+classFile, dom.PathAttr, p),
		dom.El("span", "class", classArrow),
		dom.Append(dom.El("span", "class", classIcon), dom.Text(iconFile)),
		dom.Append(dom.El("span", "class", classLabel), dom.Text(name)),
	)
}

// attachEvents binds the delegated click listener on the tree root. Node
// clicks resolve through data-path, so inserted subtrees need no binding of
// their own and repeated calls are no-ops.
func (v *View) attachEvents() {
	if _, ok := dom.Attr(v.container, boundAttr); ok {
		return
	}
	dom.SetAttr(v.container, boundAttr, "true")
	log.Debugf("tree listener bound")
}

// Bound reports whether the delegated listener is attached.
func (v *View) Bound() bool {
	_, ok := dom.Attr(v.container, boundAttr)
	return ok
}

// Click handles a click on the node carrying data-path p and reports
// whether such a node exists.
func (v *View) Click(p string) bool {
	if !v.Bound() {
		return false
	}
	n := dom.ByPath(v.container, p)
	if n == nil {
		log.Debugf("click on unknown path %q", p)
		return false
	}
	if folder := n.Parent; folder != nil && dom.HasClass(folder, classFolder) {
		v.toggleFolder(folder, p)
		return true
	}
	v.send(proto.ReadFile(v.id(), p))
	return true
}

func (v *View) toggleFolder(folder *html.Node, p string) {
	open := dom.ToggleClass(folder, classOpen)
	setArrow(folder, open)
	if !open {
		return
	}
	// Every open re-requests the listing; nothing is cached across
	// collapse/expand.
	v.requestChild(p, childrenOf(folder))
}

func (v *View) requestChild(p string, container *html.Node) {
	if container == nil {
		log.Warnf("folder %q has no children container", p)
		return
	}
	if v.pending != nil {
		log.Debugf("expansion of %q supersedes %q", p, v.pending.path)
	}
	id := v.id()
	v.pending = &pending{id: id, path: p, container: container}
	v.send(proto.ListChild(id, p))
}

func setArrow(folder *html.Node, open bool) {
	header := headerOf(folder)
	if header == nil {
		return
	}
	for _, c := range dom.Children(header) {
		if dom.HasClass(c, classArrow) {
			if open {
				dom.SetText(c, ArrowOpen)
			} else {
				dom.SetText(c, ArrowClosed)
			}
			return
		}
	}
}

func headerOf(folder *html.Node) *html.Node {
	for _, c := range dom.Children(folder) {
		if dom.HasClass(c, classNode) {
			return c
		}
	}
	return nil
}

func childrenOf(folder *html.Node) *html.Node {
	for _, c := range dom.Children(folder) {
		if dom.HasClass(c, classChildren) {
			return c
		}
	}
	return nil
}

// stale reports whether rep answers something other than the pending
// expansion. Ids decide when the reply has one; otherwise the echoed folder
// does. A reply with neither is accepted positionally.
func (p *pending) stale(rep proto.Reply) bool {
	if rep.ID != 0 && p.id != 0 {
		return rep.ID != p.id
	}
	if rep.Folder != "" {
		return rep.Folder != p.path
	}
	if rep.Action == proto.ReplyError && rep.Path != "" {
		return rep.Path != p.path
	}
	return false
}

// InsertChildTree consumes the pending expansion: rep.Tree is rendered into
// the pending container with the pending path as base. Without a pending
// expansion, or for a superseded reply, it does nothing and returns false.
func (v *View) InsertChildTree(rep proto.Reply) bool {
	p := v.pending
	if p == nil {
		log.Debugf("child tree with nothing pending")
		return false
	}
	if p.stale(rep) {
		log.Debugf("drop stale child tree (id %d, folder %q), pending %q", rep.ID, rep.Folder, p.path)
		return false
	}
	tree := rep.Tree
	if tree == nil {
		tree = proto.NewFolder()
	}
	v.renderInto(p.container, tree, p.path)
	if folder := p.container.Parent; folder != nil {
		if header := headerOf(folder); header != nil {
			dom.RemoveClass(header, classError)
			dom.RemoveAttr(header, "title")
		}
	}
	v.attachEvents()
	v.pending = nil
	return true
}

// FailExpansion applies an error reply to the pending expansion: the
// folder is closed again and its header is marked with the message. Returns
// false when the reply does not match the pending expansion.
func (v *View) FailExpansion(rep proto.Reply) bool {
	p := v.pending
	if p == nil || p.stale(rep) {
		return false
	}
	v.pending = nil
	dom.Clear(p.container)
	folder := p.container.Parent
	if folder == nil {
		return true
	}
	dom.RemoveClass(folder, classOpen)
	setArrow(folder, false)
	if header := headerOf(folder); header != nil {
		dom.AddClass(header, classError)
		dom.SetAttr(header, "title", rep.Message)
	}
	log.Warnf("expand %q: %s", p.path, rep.Message)
	return true
}

// Pending returns the path of the in-flight expansion.
func (v *View) Pending() (string, bool) {
	if v.pending == nil {
		return "", false
	}
	return v.pending.path, true
}

// IsOpen reports the open state of the folder at p; ok is false when p is
// not a rendered folder.
func (v *View) IsOpen(p string) (open, ok bool) {
	n := dom.ByPath(v.container, p)
	if n == nil || n.Parent == nil || !dom.HasClass(n.Parent, classFolder) {
		return false, false
	}
	return dom.HasClass(n.Parent, classOpen), true
}

// Arrow returns the arrow glyph of the folder at p.
func (v *View) Arrow(p string) string {
	n := dom.ByPath(v.container, p)
	if n == nil {
		return ""
	}
	for _, c := range dom.Children(n) {
		if dom.HasClass(c, classArrow) {
			return dom.TextContent(c)
		}
	}
	return ""
}

// Paths lists every rendered data-path in document order.
func (v *View) Paths() []string {
	var out []string
	for _, n := range dom.Find(v.container, "."+classNode) {
		if p, ok := dom.Attr(n, dom.PathAttr); ok {
			out = append(out, p)
		}
	}
	return out
}

// IsFile reports whether p is a rendered file leaf.
func (v *View) IsFile(p string) bool {
	n := dom.ByPath(v.container, p)
	return n != nil && dom.HasClass(n, classFile)
}
