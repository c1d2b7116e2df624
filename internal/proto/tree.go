package proto

import (
	"bytes"
	"encoding/json"

	"github.com/buger/jsonparser"
	"github.com/cockroachdb/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FileMarker is the leaf value written for files in a tree payload. Any
// non-object value is read back as a file.
const FileMarker = "file"

// Node is one entry of a tree payload: a folder (ordered name -> Node
// mapping) or a file leaf. The zero value is a file.
type Node struct {
	children *orderedmap.OrderedMap[string, *Node]
}

// NewFolder returns an empty folder node.
func NewFolder() *Node {
	return &Node{children: orderedmap.New[string, *Node]()}
}

// NewFile returns a file leaf.
func NewFile() *Node { return &Node{} }

// IsFolder reports whether n is a folder. A nil node is a file.
func (n *Node) IsFolder() bool { return n != nil && n.children != nil }

// Set adds or replaces a child entry and returns n so listings can be built
// fluently. Setting on a file node turns it into a folder.
func (n *Node) Set(name string, child *Node) *Node {
	if n.children == nil {
		n.children = orderedmap.New[string, *Node]()
	}
	if child == nil {
		child = NewFile()
	}
	n.children.Set(name, child)
	return n
}

// Get returns the named child.
func (n *Node) Get(name string) (*Node, bool) {
	if !n.IsFolder() {
		return nil, false
	}
	return n.children.Get(name)
}

// Child returns the named child, or nil. The nil Node reads as an empty,
// non-folder entry, so lookups can be chained.
func (n *Node) Child(name string) *Node {
	c, _ := n.Get(name)
	return c
}

// Len is the number of direct children.
func (n *Node) Len() int {
	if !n.IsFolder() {
		return 0
	}
	return n.children.Len()
}

// Names returns the direct child names in insertion order.
func (n *Node) Names() []string {
	out := make([]string, 0, n.Len())
	n.Each(func(name string, _ *Node) { out = append(out, name) })
	return out
}

// Each visits direct children in insertion order.
func (n *Node) Each(fn func(name string, child *Node)) {
	if !n.IsFolder() {
		return
	}
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MarshalJSON writes folders as objects (children in order) and files as
// the FileMarker string.
func (n *Node) MarshalJSON() ([]byte, error) {
	if !n.IsFolder() {
		return json.Marshal(FileMarker)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	n.Each(func(name string, child *Node) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		var k, v []byte
		if k, err = json.Marshal(name); err != nil {
			return
		}
		if v, err = child.MarshalJSON(); err != nil {
			return
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads objects as folders, keeping key order, and any other
// value as a file leaf.
func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		n.children = nil
		return nil
	}
	n.children = orderedmap.New[string, *Node]()
	return jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		// ObjectEach hands over keys already unescaped.
		name := string(key)
		child := NewFile()
		if typ == jsonparser.Object {
			if err := child.UnmarshalJSON(value); err != nil {
				return err
			}
		}
		n.children.Set(name, child)
		return nil
	})
}

// ParseTree decodes a tree payload. The payload must be a JSON object.
func ParseTree(data []byte) (*Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.Wrap(ErrMalformed, "tree payload is not an object")
	}
	root := NewFolder()
	if err := root.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrap(err, "parse tree")
	}
	return root, nil
}
