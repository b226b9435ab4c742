package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04"}

func isJSON(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// formParser reads typed values out of an urlencoded or multipart form,
// collecting one error per malformed field.
type formParser struct {
	values url.Values
	errs   []core.FieldError
}

func newFormParser(ctx echo.Context) (*formParser, error) {
	values, err := ctx.FormParams()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed form").WithInternal(err)
	}
	return &formParser{values: values}, nil
}

func (p *formParser) fail(key, msg string) {
	p.errs = append(p.errs, core.FieldError{Field: key, Error: msg})
}

func (p *formParser) has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *formParser) str(key string) string {
	return p.values.Get(key)
}

// strPtr is nil when key is absent.
func (p *formParser) strPtr(key string) *string {
	if !p.has(key) {
		return nil
	}
	v := p.values.Get(key)
	return &v
}

// nonEmptyStrPtr is nil when key is absent or blank.
func (p *formParser) nonEmptyStrPtr(key string) *string {
	if v := p.strPtr(key); v != nil && strings.TrimSpace(*v) != "" {
		return v
	}
	return nil
}

func (p *formParser) float(key string) float64 {
	if v := p.floatPtr(key); v != nil {
		return *v
	}
	return 0
}

// floatPtr is nil when key is absent or blank.
func (p *formParser) floatPtr(key string) *float64 {
	raw := strings.TrimSpace(p.values.Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, "must be a number")
		return nil
	}
	return &f
}

// datePtr is nil when key is absent; a blank value gives the zero time (clears nullable dates).
func (p *formParser) datePtr(key string) *time.Time {
	if !p.has(key) {
		return nil
	}
	raw := strings.TrimSpace(p.values.Get(key))
	if raw == "" {
		return &time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t
		}
	}
	p.fail(key, "must be a date (YYYY-MM-DD)")
	return nil
}

func (p *formParser) date(key string) time.Time {
	if t := p.datePtr(key); t != nil {
		return *t
	}
	return time.Time{}
}

func (p *formParser) boolPtr(key string) *bool {
	if !p.has(key) {
		return nil
	}
	b := p.boolean(key)
	return &b
}

func (p *formParser) boolean(key string) bool {
	switch strings.ToLower(strings.TrimSpace(p.values.Get(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (p *formParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return core.NewValidationError(nil, p.errs...)
}

// saveUpload stores the file sent in field, if any.
func (s *Server) saveUpload(ctx echo.Context, field, dir string) (core.StoredFile, bool, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return core.StoredFile{}, false, nil
		}
		return core.StoredFile{}, false, echo.NewHTTPError(http.StatusBadRequest, "malformed upload").WithInternal(err)
	}
	if fh.Filename == "" && fh.Size == 0 {
		return core.StoredFile{}, false, nil
	}

	f, err := fh.Open()
	if err != nil {
		return core.StoredFile{}, false, errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	stored, err := s.opts.Files.Save(ctx.Request().Context(), dir, fh.Filename, f, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return core.StoredFile{}, false, errors.Wrap(err, "saving upload")
	}
	return stored, true, nil
}
