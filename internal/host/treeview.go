package host

import (
	"bytes"
	"context"
	"html"

	"github.com/cockroachdb/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/petervdpas/treebridge/internal/content"
	"github.com/petervdpas/treebridge/internal/langdetect"
	"github.com/petervdpas/treebridge/internal/proto"
)

var ErrMissingContent = errors.New("missing content")

// TreePanel serves the tree view: listings, reads, saves and previews.
type TreePanel struct {
	store    *content.Store
	depth    int
	maxBytes int64
	md       goldmark.Markdown
}

// NewTreePanel serves store. depth bounds listing recursion (0 means
// unlimited) and maxBytes caps reads (0 means no cap).
func NewTreePanel(store *content.Store, depth int, maxBytes int64) *TreePanel {
	return &TreePanel{
		store:    store,
		depth:    depth,
		maxBytes: maxBytes,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

func (p *TreePanel) Name() string { return proto.TargetTreeView }

func (p *TreePanel) OnMessage(ctx context.Context, body string) any {
	req, err := proto.DecodeRequest(body)
	if err != nil {
		log.Warnf("treeview: %v", err)
		return proto.Reply{Action: proto.ReplyError, Message: err.Error()}
	}
	rep, err := p.handle(ctx, req)
	if err != nil {
		log.Debugf("treeview %s: %v", req.Action, err)
		return proto.Failure(req, err)
	}
	rep.ID = req.ID
	return rep
}

func (p *TreePanel) handle(ctx context.Context, req proto.Request) (proto.Reply, error) {
	switch req.Action {
	case proto.ActionListRoot:
		tree, err := p.store.Scan(ctx, "", p.depth)
		if err != nil {
			return proto.Reply{}, err
		}
		return proto.Reply{Action: proto.ReplyRoot, Tree: tree}, nil

	case proto.ActionListChild:
		tree, err := p.store.Scan(ctx, req.Folder, p.depth)
		if err != nil {
			return proto.Reply{}, err
		}
		return proto.Reply{Action: proto.ReplyChild, Folder: req.Folder, Tree: tree}, nil

	case proto.ActionReadFile:
		txt, err := p.store.ReadText(ctx, req.File, p.maxBytes)
		if err != nil {
			return proto.Reply{}, err
		}
		return proto.Reply{Action: proto.ReplyFile, Path: req.File, Content: txt.Content, Binary: txt.Binary}, nil

	case proto.ActionSaveFile:
		if req.Content == nil {
			return proto.Reply{}, ErrMissingContent
		}
		etag, err := p.store.Write(ctx, req.File, []byte(*req.Content))
		if err != nil {
			return proto.Reply{}, err
		}
		log.Infof("saved %s", req.File)
		return proto.Reply{Action: proto.ReplySaved, File: req.File, ETag: etag}, nil

	case proto.ActionPreviewFile:
		out, err := p.preview(ctx, req.File)
		if err != nil {
			return proto.Reply{}, err
		}
		return proto.Reply{Action: proto.ReplyPreview, File: req.File, HTML: out}, nil
	}
	return proto.Reply{}, proto.ErrUnknownAction
}

// preview renders markdown files; anything else is shown preformatted.
func (p *TreePanel) preview(ctx context.Context, file string) (string, error) {
	txt, err := p.store.ReadText(ctx, file, p.maxBytes)
	if err != nil {
		return "", err
	}
	if txt.Binary || langdetect.Detect(file) != "markdown" {
		return "<pre>" + html.EscapeString(txt.Content) + "</pre>", nil
	}
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(txt.Content), &buf); err != nil {
		return "", errors.Wrapf(err, "render %q", file)
	}
	return buf.String(), nil
}
