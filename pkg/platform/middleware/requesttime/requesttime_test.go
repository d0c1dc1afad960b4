package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"badgepass/pkg/requestcontext"
)

func TestMiddlewarePinsRequestTime(t *testing.T) {
	fixed := time.Date(2025, 9, 18, 9, 0, 0, 0, time.UTC)
	handler := MiddlewareWithClock(func() time.Time { return fixed })(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		first := requestcontext.Now(r.Context())
		time.Sleep(time.Millisecond)
		if second := requestcontext.Now(r.Context()); !first.Equal(fixed) || !second.Equal(fixed) {
			t.Fatalf("expected pinned time %v, got %v and %v", fixed, first, second)
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
