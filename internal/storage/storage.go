// package storage hosts cover images under a stable public URL.
//
// Covers returned by image generation APIs expire; [FileStore] mirrors them to a directory
// that `vibemix serve` exposes, so saved playlists keep a working cover.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const maxCoverBytes = 10 << 20

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStore persists cover images and answers whether a URL already points at durable storage.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte) (string, error)
	UploadFromURL(ctx context.Context, sourceURL string) (string, error)
	IsDurable(url string) bool
}

// FileStore keeps objects on the local filesystem and addresses them by publicURL.
type FileStore struct {
	dir       string
	publicURL string
	client    *resty.Client
	logger    *log.Logger
}

// NewFileStore creates the storage directory if needed.
func NewFileStore(config shared.StorageConfig, logger *log.Logger) (*FileStore, error) {
	if config.Dir == "" || config.PublicURL == "" {
		return nil, fmt.Errorf("%w: storage dir and public_url are required", shared.ErrMissingConfig)
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create storage directory: %v", shared.ErrPersistence, err)
	}

	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &FileStore{
		dir:       config.Dir,
		publicURL: strings.TrimRight(config.PublicURL, "/"),
		client:    client,
		logger:    shared.WithLogger(logger, "component", "storage"),
	}, nil
}

// Dir returns the directory objects are written to.
func (s *FileStore) Dir() string { return s.dir }

// PublicURL returns the public address of an object name.
func (s *FileStore) PublicURL(name string) string {
	return s.publicURL + "/" + name
}

// IsDurable reports whether url is already served by this store.
func (s *FileStore) IsDurable(url string) bool {
	return url != "" && strings.HasPrefix(url, s.publicURL+"/")
}

// Upload writes data under a fresh name and returns its public URL.
func (s *FileStore) Upload(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty object", shared.ErrInvalidArgument)
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported content type %s", shared.ErrInvalidArgument, contentType)
	}

	name := uuid.NewString() + ext
	tmp := filepath.Join(s.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write object: %v", shared.ErrPersistence, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: failed to commit object: %v", shared.ErrPersistence, err)
	}

	s.logger.Debug("stored object", "name", name, "bytes", len(data))
	return s.PublicURL(name), nil
}

// UploadFromURL downloads sourceURL and stores the body. A URL that is already durable is returned unchanged.
func (s *FileStore) UploadFromURL(ctx context.Context, sourceURL string) (string, error) {
	if s.IsDurable(sourceURL) {
		return sourceURL, nil
	}
	data, err := Download(ctx, s.client, sourceURL)
	if err != nil {
		return "", err
	}
	return s.Upload(ctx, data)
}

// Download fetches url with client and returns the response body.
func Download(ctx context.Context, client *resty.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty url", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = resty.New().SetTimeout(30 * time.Second)
	}

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: download failed: %v", shared.ErrNetwork, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: download returned status %d", shared.ErrNetwork, resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxCoverBytes {
		return nil, fmt.Errorf("%w: object exceeds %d bytes", shared.ErrInvalidArgument, maxCoverBytes)
	}
	return body, nil
}
