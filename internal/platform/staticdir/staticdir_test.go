package staticdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	s, err := New(log, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSaveSourceLayout(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()

	rel, abs, err := s.SaveSource(id, ".PDF", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("SaveSource: %v", err)
	}
	if rel != id.String()+".pdf" {
		t.Fatalf("rel=%q", rel)
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(raw) != "%PDF-1.4" {
		t.Fatalf("content=%q", raw)
	}
}

func TestImageWriterLayout(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()

	w, err := s.ImageWriter(id)
	if err != nil {
		t.Fatalf("ImageWriter: %v", err)
	}
	rel, err := w.WriteAsset(3, 1, "png", []byte{0x89, 0x50})
	if err != nil {
		t.Fatalf("WriteAsset: %v", err)
	}
	want := id.String() + "/image_p3_1.png"
	if rel != want {
		t.Fatalf("rel=%q want=%q", rel, want)
	}

	abs, err := s.Abs(rel)
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if _, err := os.Stat(abs); err != nil {
		t.Fatalf("asset missing: %v", err)
	}
}

func TestAbsRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Abs("../outside.txt"); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := s.Abs("ok/inside.png"); err != nil {
		t.Fatalf("Abs inside: %v", err)
	}
}

func TestRemoveSourceDeletesFileAndAssets(t *testing.T) {
	s := newTestStore(t)
	id := uuid.New()

	_, abs, err := s.SaveSource(id, "pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveSource: %v", err)
	}
	w, err := s.ImageWriter(id)
	if err != nil {
		t.Fatalf("ImageWriter: %v", err)
	}
	if _, err := w.WriteAsset(1, 0, "png", []byte("img")); err != nil {
		t.Fatalf("WriteAsset: %v", err)
	}

	if err := s.RemoveSource(id); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Fatalf("source file still present")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), id.String())); !os.IsNotExist(err) {
		t.Fatalf("asset dir still present")
	}
}
