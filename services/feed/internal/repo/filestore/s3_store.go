package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"blogfeed/pkg/s3"
	"blogfeed/services/feed/internal/entity"

	"github.com/google/uuid"
)

const keyPrefix = "posts/"

type S3Store struct {
	client *s3.Client
}

func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

func (f *S3Store) StoreImage(ctx context.Context, upload entity.ImageUpload) (string, error) {
	ref := newRef(upload.Filename)
	if err := f.client.UploadFile(ctx, ref, upload.Body, contentType(upload)); err != nil {
		return "", err
	}
	return ref, nil
}

func (f *S3Store) ReadImage(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if !validRef(ref) {
		return nil, "", entity.ErrNotFound
	}
	body, ct, err := f.client.GetFile(ctx, ref)
	if errors.Is(err, s3.ErrObjectNotFound) {
		return nil, "", entity.ErrNotFound
	}
	return body, ct, err
}

func (f *S3Store) DeleteImage(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return entity.ErrNotFound
	}
	return f.client.DeleteFile(ctx, ref)
}

func newRef(filename string) string {
	return fmt.Sprintf("%s%s%s", keyPrefix, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
}

// validRef accepts only keys this store generated.
func validRef(ref string) bool {
	if !strings.HasPrefix(ref, keyPrefix) {
		return false
	}
	name := strings.TrimPrefix(ref, keyPrefix)
	id := strings.TrimSuffix(name, filepath.Ext(name))
	_, err := uuid.Parse(id)
	return err == nil
}

func contentType(upload entity.ImageUpload) string {
	if upload.ContentType != "" {
		return upload.ContentType
	}
	switch strings.ToLower(filepath.Ext(upload.Filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
