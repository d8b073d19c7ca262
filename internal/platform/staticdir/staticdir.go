package staticdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

// Store owns the static directory. Uploaded source files live at
// {root}/{source_id}.{ext}; extracted assets live under {root}/{source_id}/.
// Paths handed to callers are root-relative so they survive volume remounts.
type Store struct {
	log  *logger.Logger
	root string
}

func New(log *logger.Logger, root string) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("static dir required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve static dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir static dir: %w", err)
	}
	return &Store{
		log:  log.With("service", "StaticDir"),
		root: abs,
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Abs resolves a root-relative path and refuses traversal outside the root.
func (s *Store) Abs(rel string) (string, error) {
	joined := filepath.Join(s.root, filepath.FromSlash(rel))
	cleaned := filepath.Clean(joined)
	if cleaned != s.root && !strings.HasPrefix(cleaned, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes static dir", rel)
	}
	return cleaned, nil
}

// SaveSource streams an upload to {root}/{id}.{ext} and returns the
// root-relative and absolute paths.
func (s *Store) SaveSource(id uuid.UUID, ext string, r io.Reader) (string, string, error) {
	if r == nil {
		return "", "", fmt.Errorf("reader required")
	}
	ext = normalizeExt(ext)
	if ext == "" {
		return "", "", fmt.Errorf("file extension required")
	}

	rel := id.String() + "." + ext
	abs := filepath.Join(s.root, rel)

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("create source file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(abs)
		return "", "", fmt.Errorf("write source file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close source file: %w", err)
	}
	return rel, abs, nil
}

// ImageWriter writes extracted page assets for one source. A single writer
// owns the source subdirectory for the duration of an ingestion run.
type ImageWriter struct {
	store    *Store
	sourceID uuid.UUID
	dir      string
}

func (s *Store) ImageWriter(sourceID uuid.UUID) (*ImageWriter, error) {
	dir := filepath.Join(s.root, sourceID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir asset dir: %w", err)
	}
	return &ImageWriter{store: s, sourceID: sourceID, dir: dir}, nil
}

// WriteAsset stores one embedded image as image_p{page}_{idx}.{ext} and
// returns the root-relative path.
func (w *ImageWriter) WriteAsset(page, idx int, ext string, data []byte) (string, error) {
	if w == nil {
		return "", fmt.Errorf("image writer not initialized")
	}
	ext = normalizeExt(ext)
	if ext == "" {
		ext = "png"
	}
	name := fmt.Sprintf("image_p%d_%d.%s", page, idx, ext)
	abs := filepath.Join(w.dir, name)
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset %s: %w", name, err)
	}
	return filepath.ToSlash(filepath.Join(w.sourceID.String(), name)), nil
}

func (w *ImageWriter) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// RemoveSource deletes the uploaded file and the asset subdirectory.
// Best-effort: callers treat a failed cleanup as a warning, not an error.
func (s *Store) RemoveSource(id uuid.UUID) error {
	var firstErr error

	matches, err := filepath.Glob(filepath.Join(s.root, id.String()+".*"))
	if err == nil {
		for _, m := range matches {
			if rmErr := os.Remove(m); rmErr != nil && !os.IsNotExist(rmErr) && firstErr == nil {
				firstErr = rmErr
			}
		}
	}

	if rmErr := os.RemoveAll(filepath.Join(s.root, id.String())); rmErr != nil && firstErr == nil {
		firstErr = rmErr
	}

	if firstErr != nil {
		s.log.Warn("Static cleanup incomplete", "source_id", id.String(), "error", firstErr.Error())
	}
	return firstErr
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimPrefix(ext, ".")
	return ext
}
