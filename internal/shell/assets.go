package shell

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/petervdpas/treebridge/internal/langdetect"
)

// langsVar is the global the page reads the extension table from.
const langsVar = "treebridgeLanguages"

//go:embed web/*
var rawFS embed.FS

var mediaTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
}

var minified map[string][]byte

func init() {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	minified = make(map[string][]byte)

	_ = fs.WalkDir(rawFS, "web", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		mt, ok := mediaTypes[strings.ToLower(path.Ext(p))]
		if !ok {
			return nil
		}
		raw, err := rawFS.ReadFile(p)
		if err != nil {
			return nil
		}
		name := strings.TrimPrefix(p, "web/")
		out, err := m.Bytes(mt, raw)
		if err != nil {
			log.Warnf("minify %s: %v (serving unminified)", name, err)
			minified[name] = raw
			return nil
		}
		minified[name] = out
		return nil
	})

	// The page detects languages from the same table as the Go side.
	table, err := json.Marshal(langdetect.Extensions())
	if err != nil {
		panic(err)
	}
	minified["langs.js"] = []byte("window." + langsVar + "=" + string(table) + ";")
}

// Asset returns a served shell file ("index.html", "app.js", "app.css",
// "langs.js").
func Asset(name string) ([]byte, bool) {
	b, ok := minified[name]
	return b, ok
}

// Handler serves the shell page at / and its script and stylesheet.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}
		data, ok := minified[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", mediaTypes[path.Ext(name)]+"; charset=utf-8")
		_, _ = w.Write(data)
	})
}
