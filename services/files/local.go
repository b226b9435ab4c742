package filesvc

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
)

type localStorage struct {
	root    string
	baseURL string
}

var _ core.FileStorage = (*localStorage)(nil)

// NewLocalStorage stores files under conf.Uploads.Dir, creating the upload directories.
func NewLocalStorage(conf *core.Config) (core.FileStorage, error) {
	st := &localStorage{root: conf.Uploads.Dir, baseURL: conf.Uploads.BaseURL}
	for _, dir := range Dirs {
		if err := os.MkdirAll(filepath.Join(st.root, dir), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating uploads dir %s", dir)
		}
	}
	return st, nil
}

func (st *localStorage) Save(ctx context.Context, dir, filename string, r io.Reader, contentType string) (core.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return core.StoredFile{}, err
	}
	name := StoredName(filename)
	if err := os.MkdirAll(filepath.Join(st.root, dir), 0o755); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating uploads dir")
	}

	fp := filepath.Join(st.root, dir, name)
	f, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating upload")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return core.StoredFile{}, errors.Wrap(err, "writing upload")
	}
	if err = f.Close(); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "writing upload")
	}
	return core.StoredFile{Name: name, URL: st.URL(dir, name), ContentType: contentType}, nil
}

func (st *localStorage) URL(dir, name string) string {
	return joinURL(st.baseURL, dir, name)
}
