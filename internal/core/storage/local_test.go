package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ajeu-backend/internal/core/apperr"
)

// 最小 PNG 头足以让 mimetype 识别
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestSaveAvatarPNG(t *testing.T) {
	dir := t.TempDir()
	s := &Local{Dir: dir, PublicPrefix: "/uploads"}

	p, err := s.SaveAvatar(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(p, "/uploads/avatars/avatar_") || !strings.HasSuffix(p, ".png") {
		t.Fatalf("path = %q", p)
	}
	onDisk := filepath.Join(dir, "avatars", filepath.Base(p))
	b, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(b, pngHeader) {
		t.Fatal("content mismatch")
	}
}

func TestSaveAvatarRejectsText(t *testing.T) {
	s := &Local{Dir: t.TempDir(), PublicPrefix: "/uploads"}
	_, err := s.SaveAvatar(strings.NewReader("just some text"))
	if !apperr.Is(err, apperr.KindUnsupportedMedia) {
		t.Fatalf("err = %v, want unsupported media", err)
	}
}

func TestSaveAvatarTooLarge(t *testing.T) {
	s := &Local{Dir: t.TempDir(), PublicPrefix: "/uploads", MaxBytes: 4}
	_, err := s.SaveAvatar(bytes.NewReader(pngHeader))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestRemoveAvatar(t *testing.T) {
	dir := t.TempDir()
	s := &Local{Dir: dir, PublicPrefix: "/uploads"}
	p, err := s.SaveAvatar(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(p); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "avatars", filepath.Base(p))); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	// 重复删除与越界路径都静默忽略
	if err := s.Remove(p); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if err := s.Remove("/uploads/../secret"); err != nil {
		t.Fatalf("outside path: %v", err)
	}
}
