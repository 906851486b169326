package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"ajeu-backend/internal/core/apperr"
)

// 头像只接受这两种类型，值为落盘扩展名
var avatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// Local 把上传文件写到本地 public 目录，对外以 PublicPrefix 暴露
type Local struct {
	Dir          string // ./public/uploads
	PublicPrefix string // /uploads
	MaxBytes     int64
}

// SaveAvatar 嗅探内容类型，写入 <Dir>/avatars/avatar_<uuid>.<ext>，返回公开路径
func (s *Local) SaveAvatar(r io.Reader) (string, error) {
	limit := s.MaxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", apperr.BadRequest("cannot read upload")
	}
	if int64(len(data)) > limit {
		return "", apperr.BadRequest("file too large")
	}

	mt := mimetype.Detect(data)
	ext, ok := avatarTypes[mt.String()]
	if !ok {
		return "", apperr.UnsupportedMedia("unsupported file type: " + mt.String())
	}

	dir := filepath.Join(s.Dir, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Internal("upload failed", err)
	}
	name := fmt.Sprintf("avatar_%s.%s", uuid.NewString(), ext)
	full := filepath.Join(dir, name)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperr.Internal("upload failed", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", apperr.Internal("upload failed", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", apperr.Internal("upload failed", err)
	}
	return path.Join(s.PublicPrefix, "avatars", name), nil
}

// Remove 删除 SaveAvatar 返回的公开路径对应的文件；不在上传目录下的路径忽略
func (s *Local) Remove(publicPath string) error {
	rel, ok := strings.CutPrefix(path.Clean(publicPath), path.Clean(s.PublicPrefix)+"/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
