// Package media stores receipt photos in a GCS bucket and hands back gs://
// URIs that transactions carry as their photo reference.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const uploadTimeout = 2 * time.Minute

// Uploader writes photos to one bucket. It assumes Application Default
// Credentials are configured.
type Uploader struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("media.NewUploader: create storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket, now: time.Now}, nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}

// UploadPhoto uploads a local image file and returns its gs:// URI. Object
// names are date-partitioned with a random id so repeated uploads of the
// same file never collide.
func (u *Uploader) UploadPhoto(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("media.UploadPhoto: open %q: %w", filePath, err)
	}
	defer f.Close()

	objectName := fmt.Sprintf("uploads/photos/%s/%s%s",
		u.now().UTC().Format("2006-01-02"), uuid.NewString(), filepath.Ext(filePath))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("media.UploadPhoto: copy to object writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("media.UploadPhoto: finalize upload: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}

// FetchPhoto downloads the photo bytes for a stored gs:// URI.
func (u *Uploader) FetchPhoto(ctx context.Context, gsURI string) ([]byte, error) {
	bucket, object, err := splitURI(gsURI)
	if err != nil {
		return nil, fmt.Errorf("media.FetchPhoto: %w", err)
	}
	rc, err := u.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("media.FetchPhoto: reading %s: %w", gsURI, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("media.FetchPhoto: reading bytes: %w", err)
	}
	return data, nil
}

// Filename extracts the object file name from a gs:// URI.
func Filename(gsURI string) string {
	trimmed := strings.TrimPrefix(gsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

func splitURI(gsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gsURI, "gs://"), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gsURI)
	}
	return parts[0], parts[1], nil
}
