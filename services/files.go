package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskFileStore keeps attachments in a local directory that is served
// under URLPrefix.
type DiskFileStore struct {
	Dir       string
	URLPrefix string
}

func NewDiskFileStore(dir, urlPrefix string) (*DiskFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskFileStore{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save writes r to a uniquely named file and returns its URL.
func (s *DiskFileStore) Save(ctx context.Context, taskID, name string, r io.Reader) (string, error) {
	fileName := fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(filepath.Clean("/"+name)))
	f, err := os.Create(filepath.Join(s.Dir, fileName))
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write attachment file: %w", err)
	}
	return s.URLPrefix + "/" + fileName, nil
}

// Remove deletes the file behind url. Unknown URLs are ignored.
func (s *DiskFileStore) Remove(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.URLPrefix+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, path.Base(url)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove attachment file: %w", err)
	}
	return nil
}
