package editor

import (
	"github.com/cockroachdb/errors"

	"github.com/petervdpas/treebridge/internal/langdetect"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Surface is the embedded code editor as the bridge sees it.
type Surface interface {
	SetContent(text string)
	Content() string
	SetLanguage(id string) error
	Layout()
}

// Buffer is an in-memory Surface holding a single document.
type Buffer struct {
	text      string
	savedText string
	language  string
	layouts   int
}

// NewBuffer returns an empty plain-text buffer.
func NewBuffer() *Buffer {
	return &Buffer{language: langdetect.PlainText}
}

// SetContent replaces the document and marks it clean.
func (b *Buffer) SetContent(text string) {
	b.text = text
	b.savedText = text
}

func (b *Buffer) Content() string { return b.text }

// SetLanguage switches highlighting. Ids outside the detector's table are
// rejected and the current language is kept.
func (b *Buffer) SetLanguage(id string) error {
	if !langdetect.Known(id) {
		return errors.Wrapf(ErrUnknownLanguage, "%q", id)
	}
	b.language = id
	return nil
}

func (b *Buffer) Language() string { return b.language }

func (b *Buffer) Layout() { b.layouts++ }

// Layouts counts Layout calls.
func (b *Buffer) Layouts() int { return b.layouts }

// Edit replaces the text as a user edit would, leaving the buffer dirty.
func (b *Buffer) Edit(text string) { b.text = text }

// Dirty reports whether the text differs from what was last loaded.
func (b *Buffer) Dirty() bool { return b.text != b.savedText }
