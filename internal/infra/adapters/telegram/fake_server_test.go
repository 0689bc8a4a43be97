//go:build !integration

package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeTelegram is a minimal Bot API: it answers getMe and setMyCommands and
// delegates every other method to handlers registered by the test.
type fakeTelegram struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	calls    map[string]int
	forms    map[string][]map[string]string
	handlers map[string]func(form map[string]string) (int, string)
	getMeErr bool
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{
		t:        t,
		calls:    map[string]int{},
		forms:    map[string][]map[string]string{},
		handlers: map[string]func(map[string]string) (int, string){},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) endpoint() string { return f.srv.URL + "/bot%s/%s" }

func (f *fakeTelegram) on(method string, h func(form map[string]string) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeTelegram) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeTelegram) lastForm(method string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	forms := f.forms[method]
	if len(forms) == 0 {
		return nil
	}
	return forms[len(forms)-1]
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	method := parts[len(parts)-1]
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	f.mu.Lock()
	f.calls[method]++
	f.forms[method] = append(f.forms[method], form)
	h := f.handlers[method]
	getMeErr := f.getMeErr
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case method == "getMe" && getMeErr:
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	case method == "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Padel","username":"padel_bot"}}`))
	case h != nil:
		status, body := h(form)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func okMessage(id int) (int, string) {
	b, _ := json.Marshal(map[string]any{
		"ok": true,
		"result": map[string]any{
			"message_id": id,
			"date":       0,
			"chat":       map[string]any{"id": -1001, "type": "channel"},
		},
	})
	return http.StatusOK, string(b)
}

func apiError(code int, desc string, retryAfter int) func(map[string]string) (int, string) {
	return func(map[string]string) (int, string) {
		resp := map[string]any{"ok": false, "error_code": code, "description": desc}
		if retryAfter > 0 {
			resp["parameters"] = map[string]any{"retry_after": retryAfter}
		}
		b, _ := json.Marshal(resp)
		return code, string(b)
	}
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
