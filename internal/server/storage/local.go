package storage

import (
	"context"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/hasker/internal/filex"
)

// LocalStorage writes blobs under a root directory that the HTTP server
// exposes at urlPrefix.
type LocalStorage struct {
	root      string
	urlPrefix string
}

func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	root, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalStorage{root: root, urlPrefix: urlPrefix}, nil
}

// Root is the absolute directory the blobs live in.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := filex.SafeJoin(s.root, key)
	if err != nil {
		return err
	}
	return filex.WriteFile(path, data)
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := filex.SafeJoin(s.root, key)
	if err != nil {
		return err
	}
	return filex.RemoveIfExists(path)
}

func (s *LocalStorage) URL(_ context.Context, key string) (string, error) {
	u := url.URL{Path: s.urlPrefix + strings.TrimPrefix(key, "/")}
	return u.EscapedPath(), nil
}
