package content

import (
	"bytes"
	"context"
	"path"
	"strings"
	"unicode/utf8"
)

// binaryExts are never shown as text, whatever their bytes look like.
var binaryExts = map[string]bool{
	".o": true, ".a": true, ".so": true, ".dll": true, ".dylib": true, ".exe": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	".zip": true, ".tar": true, ".gz": true, ".7z": true,
}

// Placeholder documents shown instead of binary content.
const (
	BinaryExtNotice = "// Binary file: viewing is not supported in this editor.\n"
	BinaryNULNotice = "// Binary or non-text file (contains NUL bytes). Not shown.\n"
	NotUTF8Notice   = "// Error: file is not valid UTF-8 (probably binary). Cannot display in editor.\n"
)

// Text is a file prepared for the editor.
type Text struct {
	Content string
	Binary  bool
	ETag    string
}

// ReadText reads rel for display. Files that are binary by extension or by
// content come back with Binary set and a placeholder as Content.
func (s *Store) ReadText(ctx context.Context, rel string, maxBytes int64) (Text, error) {
	if binaryExts[strings.ToLower(path.Ext(rel))] {
		// Still resolve the path so missing files report as missing.
		if _, err := s.stat(rel); err != nil {
			return Text{}, err
		}
		return Text{Content: BinaryExtNotice, Binary: true}, nil
	}

	b, etag, err := s.Read(ctx, rel, maxBytes)
	if err != nil {
		return Text{}, err
	}
	switch {
	case bytes.IndexByte(b, 0) >= 0:
		return Text{Content: BinaryNULNotice, Binary: true, ETag: etag}, nil
	case !utf8.Valid(b):
		return Text{Content: NotUTF8Notice, Binary: true, ETag: etag}, nil
	}
	return Text{Content: string(b), ETag: etag}, nil
}
