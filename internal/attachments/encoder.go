// Package attachments turns uploaded files into the FileData stored with a
// message: small files inline as data URLs, larger ones in object storage.
package attachments

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

const presignTTL = 24 * time.Hour

// Limits used when none are configured.
const (
	DefaultInlineLimit int64 = 256 << 10
	DefaultMaxBytes    int64 = 10 << 20
)

// Upload is a file as sent by a client.
type Upload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data []byte `json:"data"`
}

// Encoder stores uploads. Without an ObjectStore every file is inlined.
type Encoder struct {
	objects     ObjectStore
	inlineLimit int64
	maxBytes    int64
}

func NewEncoder(objects ObjectStore, inlineLimit, maxBytes int64) *Encoder {
	return &Encoder{objects: objects, inlineLimit: inlineLimit, maxBytes: maxBytes}
}

// Encode validates up and stores it for conversation conv.
func (e *Encoder) Encode(ctx context.Context, conv string, up Upload) (*domain.FileData, error) {
	size := int64(len(up.Data))
	if size == 0 {
		return nil, svcErr.InvalidArgument("file is empty")
	}
	if e.maxBytes > 0 && size > e.maxBytes {
		return nil, svcErr.InvalidArgument(fmt.Sprintf("file exceeds %d bytes", e.maxBytes))
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(up.Name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	contentType := strings.TrimSpace(up.Type)
	if contentType == "" {
		contentType = http.DetectContentType(up.Data)
	}

	fd := &domain.FileData{Name: name, Type: contentType, Size: size}
	if e.objects == nil || size <= e.inlineLimit {
		fd.URL = "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(up.Data)
		return fd, nil
	}

	key := path.Join("chats", conv, uuid.NewString(), name)
	if err := e.objects.Put(ctx, key, bytes.NewReader(up.Data), size, contentType); err != nil {
		return nil, err
	}
	fd.Key = key
	return fd, nil
}

// Resolve fills the URL of an object-stored file with a presigned link.
func (e *Encoder) Resolve(ctx context.Context, fd *domain.FileData) (*domain.FileData, error) {
	if fd == nil || fd.Key == "" || e.objects == nil {
		return fd, nil
	}
	u, err := e.objects.PresignGet(ctx, fd.Key, presignTTL)
	if err != nil {
		return fd, err
	}
	out := *fd
	out.URL = u
	return &out, nil
}

// Remove deletes the stored object behind fd, if any.
func (e *Encoder) Remove(ctx context.Context, fd *domain.FileData) error {
	if fd == nil || fd.Key == "" || e.objects == nil {
		return nil
	}
	return e.objects.Delete(ctx, fd.Key)
}
