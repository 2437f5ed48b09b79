package hasface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
)

// ImageRef is implemented by attribute values that can point at an image file.
// An empty path means the value has no image.
type ImageRef interface {
	Path() string
}

// Blanker lets a value decide whether it counts as blank.
type Blanker interface {
	IsBlank() bool
}

// FilePath is an ImageRef for a plain path or URL.
type FilePath string

// Path implements ImageRef.
func (p FilePath) Path() string { return string(p) }

// Opener opens the image at path for upload to the detection API.
type Opener func(ctx context.Context, path string) (io.ReadCloser, error)

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isBlank(value any) bool {
	if isNil(value) {
		return true
	}
	switch v := value.(type) {
	case Blanker:
		return v.IsBlank()
	case ImageRef:
		return strings.TrimSpace(v.Path()) == ""
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return strings.TrimSpace(rv.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

func resolvePath(value any) string {
	if isNil(value) {
		return ""
	}
	ref, ok := value.(ImageRef)
	if !ok {
		return ""
	}
	return strings.TrimSpace(ref.Path())
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// openImage is the default Opener. URLs are fetched as-is, other paths are
// fetched relative to the configured hostname or read from disk when there is none.
func (v *Validator) openImage(ctx context.Context, path string) (io.ReadCloser, error) {
	switch {
	case isRemote(path):
		return v.fetchImage(ctx, path)
	case v.cfg.Hostname != "":
		return v.fetchImage(ctx, strings.TrimRight(v.cfg.Hostname, "/")+"/"+strings.TrimLeft(path, "/"))
	}
	return os.Open(path)
}

func (v *Validator) fetchImage(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode > 299 {
		res.Body.Close()
		return nil, fmt.Errorf("fetch image %s: %s", url, res.Status)
	}
	return res.Body, nil
}
