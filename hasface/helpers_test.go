package hasface

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	testAPIKey    = "test-key"
	testAPISecret = "test-secret"

	validImagePath   = "/u/17429266/swoonme/test/hit.jpeg"
	invalidImagePath = "/u/17429266/swoonme/test/miss.jpeg"

	faceBytes      = "jpeg-with-a-face"
	landscapeBytes = "jpeg-of-a-landscape"
)

type detectCall struct {
	apiKey    string
	apiSecret string
	filename  string
	image     string
}

// fakeFaceAPI serves test images and a detection endpoint that tags images
// whose content is faceBytes.
type fakeFaceAPI struct {
	server *httptest.Server

	mu    sync.Mutex
	calls []detectCall

	// respond overrides the detection answer when set.
	respond func(w http.ResponseWriter, call detectCall)
}

func newFakeFaceAPI(t *testing.T) *fakeFaceAPI {
	t.Helper()

	api := &fakeFaceAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc(validImagePath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, faceBytes)
	})
	mux.HandleFunc(invalidImagePath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, landscapeBytes)
	})
	mux.HandleFunc("/faces/detect.json", api.detect)

	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeFaceAPI) detect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image is required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	call := detectCall{
		apiKey:    r.FormValue("api_key"),
		apiSecret: r.FormValue("api_secret"),
		filename:  header.Filename,
		image:     string(data),
	}
	a.mu.Lock()
	a.calls = append(a.calls, call)
	respond := a.respond
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if respond != nil {
		respond(w, call)
		return
	}
	if call.image == faceBytes {
		_, _ = io.WriteString(w, `{"status":"success","photos":[{"url":"","pid":"F@1","width":300,"height":400,"tags":[{"tid":"TEMP_F@1","confirmed":false,"manual":false,"width":40.5,"height":30.1,"center":{"x":50.2,"y":40.8},"attributes":{"face":{"value":"true","confidence":88}}}]}]}`)
		return
	}
	_, _ = io.WriteString(w, `{"status":"success","photos":[{"url":"","pid":"F@2","width":300,"height":400,"tags":[]}]}`)
}

func (a *fakeFaceAPI) Calls() []detectCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]detectCall, len(a.calls))
	copy(out, a.calls)
	return out
}

func (a *fakeFaceAPI) config() *Config {
	return &Config{
		EnableValidation: true,
		APIKey:           testAPIKey,
		APISecret:        testAPISecret,
		DetectURL:        a.server.URL + "/faces/detect.json",
		Hostname:         a.server.URL,
	}
}

type avatar struct {
	url string
}

func (a *avatar) Path() string { return a.url }

type user struct {
	Avatar *avatar
	Errors Errors
}

func (u *user) valid(t *testing.T, v *Validator) bool {
	t.Helper()
	u.Errors = Errors{}
	if err := v.Validate(context.Background(), &u.Errors, "avatar", u.Avatar); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	return u.Errors.Empty()
}
