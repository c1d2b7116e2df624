package langdetect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"markdown", "readme.md", "markdown"},
		{"no extension", "noext", PlainText},
		{"upper case", "Foo.CPP", "cpp"},
		{"nested path", "src/engine/gl_engine.cpp", "cpp"},
		{"header", "include/AutoGL/Log.hpp", "cpp"},
		{"final extension only", "dist/archive.tar.gz", PlainText},
		{"double extension", "app.test.js", "javascript"},
		{"dotfile", ".bashrc", PlainText},
		{"dot in folder", "pages.v1/index", PlainText},
		{"trailing dot", "weird.", PlainText},
		{"windows separators", `src\main.go`, "go"},
		{"yaml short", "ci.YML", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.path))
		})
	}
}

func TestDetectCaseInsensitive(t *testing.T) {
	assert.Equal(t, Detect("foo.cpp"), Detect("Foo.CPP"))

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-zA-Z0-9_]{1,12}\.[a-zA-Z]{1,8}`).Draw(t, "name")
		if Detect(name) != Detect(strings.ToLower(name)) {
			t.Fatalf("Detect(%q) differs from lowercase form", name)
		}
		if Detect(name) != Detect(strings.ToUpper(name)) {
			t.Fatalf("Detect(%q) differs from uppercase form", name)
		}
	})
}

func TestDetectIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.String().Draw(t, "path")
		lang := Detect(p)
		if lang == "" {
			t.Fatalf("Detect(%q) returned empty language", p)
		}
		if !Known(lang) {
			t.Fatalf("Detect(%q) returned %q which Known rejects", p, lang)
		}
	})
}

func TestLanguages(t *testing.T) {
	langs := Languages()
	assert.Contains(t, langs, PlainText)
	assert.Contains(t, langs, "markdown")
	assert.IsIncreasing(t, langs)
	assert.False(t, Known("klingon"))
}

func TestExtensionsMatchesDetect(t *testing.T) {
	exts := Extensions()
	assert.NotEmpty(t, exts)
	for ext, lang := range exts {
		assert.Equal(t, lang, Detect("file"+ext), "extension %s", ext)
		assert.True(t, strings.HasPrefix(ext, "."))
	}

	exts[".go"] = "changed"
	assert.Equal(t, "go", Detect("main.go"), "returned map is a copy")
}
