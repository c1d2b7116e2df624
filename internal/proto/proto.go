// Package proto defines the messages exchanged between the tree UI and the
// host process that owns the filesystem.
//
// Requests travel UI -> host inside an Envelope whose body is the serialized
// Request. Replies travel host -> UI inside a ReplyEnvelope and are routed to
// a callback by (panel, action).
package proto

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Panel targets on the host channel.
const (
	TargetTreeView = "treeview"
	TargetSidebar  = "sidebar"
)

// Request actions (UI -> host).
const (
	ActionListRoot    = "list_root"
	ActionListChild   = "list_child"
	ActionReadFile    = "read_file"
	ActionSaveFile    = "save_file"
	ActionPreviewFile = "preview_file"
)

// Reply actions (host -> UI).
const (
	ReplyRoot    = "root"
	ReplyChild   = "child"
	ReplyFile    = "file"
	ReplySaved   = "saved"
	ReplyPreview = "preview"
	ReplyError   = "error"
)

var (
	ErrMalformed     = errors.New("malformed message")
	ErrUnknownAction = errors.New("unknown action")
)

// Envelope carries one request to a host panel. Body is the caller
// serialized Request.
type Envelope struct {
	Panel string `json:"panel"`
	Body  string `json:"body"`
}

// ReplyEnvelope carries one reply from a host panel.
type ReplyEnvelope struct {
	Panel string          `json:"panel"`
	Body  json.RawMessage `json:"body"`
}

// Request is the body of every UI -> host message. ID is optional; hosts
// echo it back so stale replies can be told apart.
type Request struct {
	Action  string  `json:"action"`
	ID      uint64  `json:"id,omitempty"`
	Folder  string  `json:"folder,omitempty"`
	File    string  `json:"file,omitempty"`
	Content *string `json:"content,omitempty"`
}

func ListRoot(id uint64) Request { return Request{Action: ActionListRoot, ID: id} }

func ListChild(id uint64, folder string) Request {
	return Request{Action: ActionListChild, ID: id, Folder: folder}
}

func ReadFile(id uint64, file string) Request {
	return Request{Action: ActionReadFile, ID: id, File: file}
}

func SaveFile(id uint64, file, content string) Request {
	return Request{Action: ActionSaveFile, ID: id, File: file, Content: &content}
}

func PreviewFile(id uint64, file string) Request {
	return Request{Action: ActionPreviewFile, ID: id, File: file}
}

// Encode serializes r into the string payload the host channel carries.
func (r Request) Encode() string {
	b, err := json.Marshal(r)
	if err != nil {
		// Request holds only strings and ints.
		panic(err)
	}
	return string(b)
}

// DecodeRequest parses a request body.
func DecodeRequest(body string) (Request, error) {
	var r Request
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return Request{}, errors.Mark(errors.Wrap(err, "decode request"), ErrMalformed)
	}
	if r.Action == "" {
		return Request{}, errors.Wrap(ErrMalformed, "request has no action")
	}
	return r, nil
}

// Reply is the body of every host -> UI message. Which fields are set
// depends on Action.
type Reply struct {
	Action string `json:"action"`
	ID     uint64 `json:"id,omitempty"`

	// root, child
	Tree   *Node  `json:"tree,omitempty"`
	Folder string `json:"folder,omitempty"`

	// file, preview
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
	Binary  bool   `json:"binary,omitempty"`
	HTML    string `json:"html,omitempty"`

	// saved
	File string `json:"file,omitempty"`
	ETag string `json:"etag,omitempty"`

	// error
	Request string `json:"request,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failure builds the error reply for req.
func Failure(req Request, err error) Reply {
	p := req.File
	if req.Action == ActionListChild {
		p = req.Folder
	}
	return Reply{
		Action:  ReplyError,
		ID:      req.ID,
		Request: req.Action,
		Path:    p,
		Message: err.Error(),
	}
}

// DecodeReply parses a reply body.
func DecodeReply(body []byte) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(body, &r); err != nil {
		return Reply{}, errors.Mark(errors.Wrap(err, "decode reply"), ErrMalformed)
	}
	return r, nil
}
