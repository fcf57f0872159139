package content

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chainchat/syncd/internal/models"
)

// Meta describes an upload.
type Meta struct {
	Name        string
	ContentType string
}

// Store is the content-addressed store boundary. Upload returns a CID-style
// reference; ResolveURL maps a reference to a fetchable gateway URL. The core
// does no retries; retries, if any, belong to the store client.
type Store interface {
	Upload(ctx context.Context, data []byte, meta Meta) (string, error)
	ResolveURL(ref string) string
}

// Extensions accepted for chat file uploads.
var allowedExtensions = map[string]string{
	".png":  models.MessageKindImage,
	".jpg":  models.MessageKindImage,
	".jpeg": models.MessageKindImage,
	".gif":  models.MessageKindImage,
	".webp": models.MessageKindImage,
	".pdf":  models.MessageKindFile,
	".txt":  models.MessageKindFile,
	".zip":  models.MessageKindFile,
	".doc":  models.MessageKindFile,
	".docx": models.MessageKindFile,
}

// Validate checks a file name and size against the upload policy and returns
// the message kind the upload maps to (image or file).
func Validate(name string, size int64, maxSizeMB int) (string, error) {
	if size > int64(maxSizeMB)*1024*1024 {
		return "", fmt.Errorf("%w: %d bytes (max %d MB)", models.ErrFileTooLarge, size, maxSizeMB)
	}
	ext := strings.ToLower(filepath.Ext(name))
	kind, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnsupportedFileType, ext)
	}
	return kind, nil
}
