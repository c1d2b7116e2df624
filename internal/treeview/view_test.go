package treeview

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/petervdpas/treebridge/internal/dom"
	"github.com/petervdpas/treebridge/internal/hostchan"
	"github.com/petervdpas/treebridge/internal/proto"
)

func newView(t *testing.T, opts ...Option) (*View, *hostchan.Recorder) {
	t.Helper()
	rec := &hostchan.Recorder{}
	v, err := New(dom.New(), rec, opts...)
	require.NoError(t, err)
	return v, rec
}

func mustTree(t *testing.T, s string) *proto.Node {
	t.Helper()
	tree, err := proto.ParseTree([]byte(s))
	require.NoError(t, err)
	return tree
}

func childReply(t *testing.T, id uint64, folder, tree string) proto.Reply {
	return proto.Reply{Action: proto.ReplyChild, ID: id, Folder: folder, Tree: mustTree(t, tree)}
}

func lastRequest(t *testing.T, rec *hostchan.Recorder) proto.Request {
	t.Helper()
	reqs := rec.Requests()
	require.NotEmpty(t, reqs)
	return reqs[len(reqs)-1]
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "a/b/c", JoinPath("a/b", "c"))
	assert.Equal(t, "c", JoinPath("", "c"))

	rapid.Check(t, func(t *rapid.T) {
		parent := rapid.StringMatching(`([a-z0-9]{1,5}(/[a-z0-9]{1,5}){0,3})?`).Draw(t, "parent")
		name := rapid.StringMatching(`[a-zA-Z0-9._-]{1,10}`).Draw(t, "name")
		got := JoinPath(parent, name)
		if !strings.HasSuffix(got, name) {
			t.Fatalf("JoinPath(%q, %q) = %q lost the name", parent, name, got)
		}
		if parent == "" && got != name {
			t.Fatalf("root join produced %q", got)
		}
		if parent != "" && got != parent+"/"+name {
			t.Fatalf("JoinPath(%q, %q) = %q", parent, name, got)
		}
	})
}

func TestNewRequiresContainer(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(`<div id="editor"></div>`))
	require.NoError(t, err)
	_, err = New(doc, &hostchan.Recorder{})
	assert.True(t, errors.Is(err, ErrNoContainer))
}

func TestRequestRootTree(t *testing.T) {
	v, rec := newView(t)
	before := dom.InnerHTML(v.Container())

	v.RequestRootTree()

	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.TargetTreeView, msgs[0].Target)
	assert.Equal(t, proto.ActionListRoot, lastRequest(t, rec).Action)
	assert.Equal(t, before, dom.InnerHTML(v.Container()))
}

func TestRenderIsLazy(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{ "src": { "main.cpp": "file", "lib": {} } }`), "")

	assert.Equal(t, []string{"src"}, v.Paths())
	open, ok := v.IsOpen("src")
	require.True(t, ok)
	assert.False(t, open)
	assert.Equal(t, ArrowClosed, v.Arrow("src"))

	children := dom.Find(v.Container(), ".tree-children")
	require.Len(t, children, 1)
	assert.Nil(t, children[0].FirstChild, "children container must start empty")
	assert.Empty(t, rec.Messages())
}

func TestEndToEndExpansion(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{ "src": { "main.cpp": "file", "lib": {} } }`), "")

	require.True(t, v.Click("src"))
	req := lastRequest(t, rec)
	assert.Equal(t, proto.ActionListChild, req.Action)
	assert.Equal(t, "src", req.Folder)

	require.True(t, v.InsertChildTree(childReply(t, req.ID, "src", `{ "main.cpp": "file", "lib": {} }`)))

	assert.Equal(t, []string{"src", "src/main.cpp", "src/lib"}, v.Paths())
	assert.True(t, v.IsFile("src/main.cpp"))
	assert.False(t, v.IsFile("src/lib"))
	_, ok := v.IsOpen("src/lib")
	assert.True(t, ok)
	assert.Len(t, dom.Find(v.Container(), ".tree-file"), 1)
	_, pending := v.Pending()
	assert.False(t, pending)

	// Inserted nodes are clickable through the same delegated listener.
	require.True(t, v.Click("src/lib"))
	assert.Equal(t, "src/lib", lastRequest(t, rec).Folder)
}

func TestFolderToggle(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{"src": {}}`), "")

	v.Click("src")
	open, _ := v.IsOpen("src")
	assert.True(t, open)
	assert.Equal(t, ArrowOpen, v.Arrow("src"))
	assert.Len(t, rec.Messages(), 1)

	v.Click("src")
	open, _ = v.IsOpen("src")
	assert.False(t, open)
	assert.Equal(t, ArrowClosed, v.Arrow("src"))
	assert.Len(t, rec.Messages(), 1, "closing must not contact the host")

	v.Click("src")
	assert.Len(t, rec.Messages(), 2, "reopening always re-requests children")
	assert.Equal(t, "src", lastRequest(t, rec).Folder)
}

func TestFolderToggleProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clicks := rapid.IntRange(1, 40).Draw(rt, "clicks")
		rec := &hostchan.Recorder{}
		v, err := New(dom.New(), rec)
		if err != nil {
			rt.Fatal(err)
		}
		tree, _ := proto.ParseTree([]byte(`{"a": {}, "b": "file"}`))
		v.Render(tree, "")

		for i := 1; i <= clicks; i++ {
			v.Click("a")
			open, _ := v.IsOpen("a")
			if open != (i%2 == 1) {
				rt.Fatalf("after %d clicks open=%v", i, open)
			}
			wantArrow := ArrowClosed
			if open {
				wantArrow = ArrowOpen
			}
			if v.Arrow("a") != wantArrow {
				rt.Fatalf("after %d clicks arrow=%q open=%v", i, v.Arrow("a"), open)
			}
		}
		if got, want := len(rec.Messages()), (clicks+1)/2; got != want {
			rt.Fatalf("%d clicks sent %d requests, want %d", clicks, got, want)
		}
	})
}

func TestFileClick(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{"docs": {}, "README.md": "file"}`), "")
	before := dom.InnerHTML(v.Container())

	require.True(t, v.Click("README.md"))
	req := lastRequest(t, rec)
	assert.Equal(t, proto.ActionReadFile, req.Action)
	assert.Equal(t, "README.md", req.File)
	assert.Equal(t, before, dom.InnerHTML(v.Container()))
	_, pending := v.Pending()
	assert.False(t, pending)
}

func TestClickUnknownPath(t *testing.T) {
	v, rec := newView(t)
	assert.False(t, v.Click("src"), "nothing rendered yet")

	v.Render(mustTree(t, `{"src": {}}`), "")
	assert.False(t, v.Click("nope"))
	assert.Empty(t, rec.Messages())
}

func TestInsertWithoutPendingIsNoop(t *testing.T) {
	v, _ := newView(t)
	v.Render(mustTree(t, `{"src": {}, "a.txt": "file"}`), "")
	before := dom.InnerHTML(v.Container())

	assert.False(t, v.InsertChildTree(childReply(t, 0, "", `{"x": "file"}`)))
	assert.False(t, v.InsertChildTree(childReply(t, 5, "src", `{"x": "file"}`)))
	assert.Equal(t, before, dom.InnerHTML(v.Container()))
}

func TestDuplicateReplyIsNoop(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{"src": {}}`), "")
	v.Click("src")
	rep := childReply(t, lastRequest(t, rec).ID, "src", `{"a.go": "file"}`)

	require.True(t, v.InsertChildTree(rep))
	after := dom.InnerHTML(v.Container())
	assert.False(t, v.InsertChildTree(rep))
	assert.Equal(t, after, dom.InnerHTML(v.Container()))
}

func TestSecondExpansionOverridesPending(t *testing.T) {
	t.Run("first reply never arrives", func(t *testing.T) {
		v, rec := newView(t)
		v.Render(mustTree(t, `{"src": {}, "docs": {}}`), "")

		v.Click("src")
		v.Click("docs")
		p, ok := v.Pending()
		require.True(t, ok)
		assert.Equal(t, "docs", p)

		docsReq := lastRequest(t, rec)
		require.True(t, v.InsertChildTree(childReply(t, docsReq.ID, "docs", `{"guide.md": "file"}`)))
		assert.Equal(t, []string{"src", "docs", "docs/guide.md"}, v.Paths())
	})

	t.Run("late reply with id is dropped", func(t *testing.T) {
		v, rec := newView(t)
		v.Render(mustTree(t, `{"src": {}, "docs": {}}`), "")

		v.Click("src")
		srcReq := lastRequest(t, rec)
		v.Click("docs")
		before := dom.InnerHTML(v.Container())

		assert.False(t, v.InsertChildTree(childReply(t, srcReq.ID, "src", `{"main.cpp": "file"}`)))
		assert.Equal(t, before, dom.InnerHTML(v.Container()))
		p, _ := v.Pending()
		assert.Equal(t, "docs", p, "stale reply must not consume the slot")
	})

	t.Run("late reply from legacy host dropped by folder", func(t *testing.T) {
		v, rec := newView(t, WithoutRequestIDs())
		v.Render(mustTree(t, `{"src": {}, "docs": {}}`), "")

		v.Click("src")
		v.Click("docs")
		for _, r := range rec.Requests() {
			assert.Zero(t, r.ID)
		}

		assert.False(t, v.InsertChildTree(childReply(t, 0, "src", `{"main.cpp": "file"}`)))
		assert.True(t, v.InsertChildTree(childReply(t, 0, "docs", `{"guide.md": "file"}`)))
		assert.Equal(t, []string{"src", "docs", "docs/guide.md"}, v.Paths())
	})

	t.Run("late bare reply is misrouted", func(t *testing.T) {
		// Without an id or folder echo the protocol cannot tell replies
		// apart: the superseded listing lands in the newer folder.
		v, _ := newView(t, WithoutRequestIDs())
		v.Render(mustTree(t, `{"src": {}, "docs": {}}`), "")

		v.Click("src")
		v.Click("docs")
		assert.True(t, v.InsertChildTree(proto.Reply{Action: proto.ReplyChild, Tree: mustTree(t, `{"main.cpp": "file"}`)}))
		assert.Equal(t, []string{"src", "docs", "docs/main.cpp"}, v.Paths())
	})
}

func TestRenderDropsPending(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{"src": {}}`), "")
	v.Click("src")
	id := lastRequest(t, rec).ID

	v.Render(mustTree(t, `{"src": {}, "new": {}}`), "")
	_, ok := v.Pending()
	assert.False(t, ok)
	assert.False(t, v.InsertChildTree(childReply(t, id, "src", `{"a": "file"}`)))
}

func TestRenderWithBasePath(t *testing.T) {
	v, _ := newView(t)
	v.Render(mustTree(t, `{"b": {}, "c.txt": "file"}`), "a")
	assert.Equal(t, []string{"a/b", "a/c.txt"}, v.Paths())
}

func TestAttachEventsIdempotent(t *testing.T) {
	v, rec := newView(t)
	assert.False(t, v.Bound())

	v.Render(mustTree(t, `{"src": {}}`), "")
	v.Render(mustTree(t, `{"src": {}}`), "")
	v.attachEvents()
	assert.True(t, v.Bound())

	n := 0
	for _, a := range v.Container().Attr {
		if a.Key == boundAttr {
			n++
		}
	}
	assert.Equal(t, 1, n)

	// One click, one request: no duplicate listeners.
	v.Click("src")
	assert.Len(t, rec.Messages(), 1)
}

func TestEmptyChildListing(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{"empty": {}}`), "")
	v.Click("empty")
	require.True(t, v.InsertChildTree(proto.Reply{Action: proto.ReplyChild, ID: lastRequest(t, rec).ID}))
	assert.Equal(t, []string{"empty"}, v.Paths())
}

func TestFailExpansion(t *testing.T) {
	v, rec := newView(t)
	v.Render(mustTree(t, `{"src": {}, "locked": {}}`), "")

	assert.False(t, v.FailExpansion(proto.Reply{Action: proto.ReplyError, Message: "x"}), "nothing pending")

	v.Click("locked")
	req := lastRequest(t, rec)
	assert.False(t, v.FailExpansion(proto.Failure(proto.ListChild(req.ID+100, "locked"), errors.New("other"))))

	require.True(t, v.FailExpansion(proto.Failure(req, errors.New("permission denied"))))
	open, _ := v.IsOpen("locked")
	assert.False(t, open)
	assert.Equal(t, ArrowClosed, v.Arrow("locked"))

	header := dom.ByPath(v.Container(), "locked")
	assert.True(t, dom.HasClass(header, classError))
	title, _ := dom.Attr(header, "title")
	assert.Equal(t, "permission denied", title)

	// A later successful expansion clears the error mark.
	v.Click("locked")
	require.True(t, v.InsertChildTree(childReply(t, lastRequest(t, rec).ID, "locked", `{"k": "file"}`)))
	assert.False(t, dom.HasClass(header, classError))
	_, hasTitle := dom.Attr(header, "title")
	assert.False(t, hasTitle)
}

func TestWithTarget(t *testing.T) {
	v, rec := newView(t, WithTarget("explorer"))
	v.RequestRootTree()
	m, _ := rec.Last()
	assert.Equal(t, "explorer", m.Target)
}

func TestUniquePathsPerRender(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,6}(\.[a-z]{1,3})?`), 1, 12, rapid.ID[string]).Draw(rt, "names")
		tree := proto.NewFolder()
		for i, n := range names {
			if i%2 == 0 {
				tree.Set(n, proto.NewFolder())
			} else {
				tree.Set(n, proto.NewFile())
			}
		}
		v, _ := New(dom.New(), &hostchan.Recorder{})
		v.Render(tree, "")
		v.Render(tree, "")

		seen := map[string]bool{}
		for _, p := range v.Paths() {
			if seen[p] {
				rt.Fatalf("path %q rendered twice", p)
			}
			seen[p] = true
		}
		if len(seen) != len(names) {
			rt.Fatalf("rendered %d paths for %d entries", len(seen), len(names))
		}
	})
}
