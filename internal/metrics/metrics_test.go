package metrics

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestSanitizeHost(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"x.test", "x.test"},
		{"X.Test:8080", "x.test"},
		{"localhost:80", "localhost"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := SanitizeHost(tc.in); got != tc.want {
			t.Fatalf("SanitizeHost(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestObserveDoesNotPanic(t *testing.T) {
	ObserveRequest("x.test:80", "file", 2*time.Millisecond)
	ObserveRequest("", "not_found", time.Millisecond)
	ObserveQuery("answered")
	ObserveClone("ok", 3*time.Second)
	ObserveTransition("origin", "start")
	SetMountsRegistered(4)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics handler status = %d", rec.Code)
	}
}
