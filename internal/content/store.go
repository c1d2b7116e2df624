// Package content is the host's view of the workspace directory: listings,
// reads and atomic writes, all confined to one root.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/petervdpas/treebridge/internal/proto"
)

var (
	ErrOutsideRoot = errors.New("path outside root")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrEmptyPath   = errors.New("empty file path")
	ErrIsDir       = errors.New("is a directory")
	ErrTooLarge    = errors.New("file too large")
)

type Store struct {
	root   string // absolute workspace root
	ignore []string
}

// NewStore opens the workspace at root. ignore holds path.Match patterns
// tested against entry names; matching entries are left out of listings.
func NewStore(root string, ignore []string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve root %s", root)
	}
	for _, pat := range ignore {
		if _, err := path.Match(pat, ""); err != nil {
			return nil, errors.Wrapf(err, "ignore pattern %q", pat)
		}
	}
	return &Store{root: abs, ignore: ignore}, nil
}

func (s *Store) RootAbs() string { return s.root }

func (s *Store) EnsureRoot() error {
	return os.MkdirAll(s.root, 0o755)
}

func (s *Store) ignored(name string) bool {
	for _, pat := range s.ignore {
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// Scan lists relDir ("" is the root) as a tree payload. Folders come before
// files, each group sorted by name. depth limits how many levels are
// expanded below relDir; deeper folders are sent empty. depth <= 0 means
// no limit.
func (s *Store) Scan(ctx context.Context, relDir string, depth int) (*proto.Node, error) {
	abs, err := s.cleanAbs(relDir)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "%q", relDir)
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, errors.Wrapf(ErrConflict, "%q is not a directory", relDir)
	}
	return s.scan(ctx, abs, depth)
}

func (s *Store) scan(ctx context.Context, absDir string, depth int) (*proto.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", absDir)
	}

	// Same folder: dirs before files, then by name.
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return a.Name() < b.Name()
	})

	out := proto.NewFolder()
	for _, e := range entries {
		if s.ignored(e.Name()) {
			continue
		}
		if !e.IsDir() {
			out.Set(e.Name(), proto.NewFile())
			continue
		}
		if depth == 1 {
			out.Set(e.Name(), proto.NewFolder())
			continue
		}
		next := depth - 1
		if depth <= 0 {
			next = 0
		}
		child, err := s.scan(ctx, filepath.Join(absDir, e.Name()), next)
		if err != nil {
			return nil, err
		}
		out.Set(e.Name(), child)
	}
	return out, nil
}

func (s *Store) stat(rel string) (os.FileInfo, error) {
	if normalizeRelPath(rel) == "" {
		return nil, ErrEmptyPath
	}
	abs, err := s.cleanAbs(rel)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "%q", rel)
		}
		return nil, err
	}
	if st.IsDir() {
		return nil, errors.Wrapf(ErrIsDir, "%q", rel)
	}
	return st, nil
}

// Read returns bytes + etag.
func (s *Store) Read(ctx context.Context, rel string, maxBytes int64) ([]byte, string, error) {
	st, err := s.stat(rel)
	if err != nil {
		return nil, "", err
	}
	if maxBytes > 0 && st.Size() > maxBytes {
		return nil, "", errors.Wrapf(ErrTooLarge, "%q is %d bytes, limit %d", rel, st.Size(), maxBytes)
	}

	abs, err := s.cleanAbs(rel)
	if err != nil {
		return nil, "", err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", errors.Wrapf(err, "read %q", rel)
	}
	return b, etagBytes(b), nil
}

// Write writes atomically: data goes to a temp file in the target directory
// which is then renamed over the target. Parent directories are created,
// but a file standing where a directory is needed is a conflict.
func (s *Store) Write(ctx context.Context, rel string, data []byte) (string, error) {
	if normalizeRelPath(rel) == "" {
		return "", ErrEmptyPath
	}
	abs, err := s.cleanAbs(rel)
	if err != nil {
		return "", err
	}

	// If the target exists and is a directory, refuse (file/dir collision)
	if st, err := os.Stat(abs); err == nil && st.IsDir() {
		return "", errors.Wrapf(ErrConflict, "%q is a directory", rel)
	}

	dir := filepath.Dir(abs)
	if err := s.mkdirAllChecked(dir); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, ".treebridge-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return "", err
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	// Re-check symlink resolution now that parents exist.
	if p, err := filepath.EvalSymlinks(tmp); err == nil {
		if !s.within(p) {
			_ = os.Remove(tmp)
			return "", ErrOutsideRoot
		}
	}

	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	return etagBytes(data), nil
}

// --- safety boundary ---

func (s *Store) within(p string) bool {
	rootClean := filepath.Clean(s.root)
	return p == rootClean || strings.HasPrefix(p, rootClean+string(filepath.Separator))
}

func (s *Store) cleanAbs(rel string) (string, error) {
	rel = normalizeRelPath(rel)
	abs := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(rel)))

	// normalizeRelPath already dropped leading "..", this guards odd inputs.
	if !s.within(abs) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", rel)
	}

	// prevent symlink escape on existing paths
	if p, err := filepath.EvalSymlinks(abs); err == nil {
		rootReal, rerr := filepath.EvalSymlinks(s.root)
		if rerr != nil {
			rootReal = s.root
		}
		if p != rootReal && !strings.HasPrefix(p, rootReal+string(filepath.Separator)) {
			return "", errors.Wrapf(ErrOutsideRoot, "%q", rel)
		}
	}

	return abs, nil
}

// mkdirAllChecked creates directories but refuses if any component in the path is a file.
func (s *Store) mkdirAllChecked(absDir string) error {
	absDir = filepath.Clean(absDir)
	rootClean := filepath.Clean(s.root)

	if !s.within(absDir) {
		return ErrOutsideRoot
	}

	rel, err := filepath.Rel(rootClean, absDir)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	cur := rootClean
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "" {
			continue
		}
		cur = filepath.Join(cur, part)

		st, err := os.Stat(cur)
		switch {
		case err == nil && !st.IsDir():
			return errors.Wrapf(ErrConflict, "%s is a file", part)
		case err == nil:
			continue
		case errors.Is(err, os.ErrNotExist):
			if mkErr := os.Mkdir(cur, 0o755); mkErr != nil && !errors.Is(mkErr, os.ErrExist) {
				return mkErr
			}
		default:
			return err
		}
	}
	return nil
}

// normalizeRelPath makes p root-relative with forward slashes. Leading
// "../" segments are dropped, so the result never climbs above the root.
func normalizeRelPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func etagBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}
