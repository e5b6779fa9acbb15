package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBuildPagination(t *testing.T) {
	cases := []struct {
		page, limit int
		total       int64
		want        int64
	}{
		{page: 1, limit: 20, total: 0, want: 0},
		{page: 1, limit: 20, total: 20, want: 1},
		{page: 2, limit: 20, total: 21, want: 2},
		{page: 1, limit: 0, total: 5, want: 0},
	}
	for _, tc := range cases {
		got := BuildPagination(tc.page, tc.limit, tc.total)
		if got.TotalPages != tc.want {
			t.Fatalf("total=%d limit=%d want pages %d got %d", tc.total, tc.limit, tc.want, got.TotalPages)
		}
	}
}

func TestErrorUsesMatchingHTTPStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Set("request_id", "req-1")
		Error(c, CodeConflict, "email already exists")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("http status want 409 got %d", w.Code)
	}
	var resp struct {
		StatusCode int               `json:"status_code"`
		Message    string            `json:"message"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.StatusCode != 409 || resp.Message != "email already exists" || resp.Data["request_id"] != "req-1" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("db locked")
	appErr := WrapError(CodeInternal, "internal server error", cause)
	if !errors.Is(appErr, cause) || !appErr.ServerSide() {
		t.Fatalf("wrapped error should unwrap and be server side: %v", appErr)
	}
	if appErr.Error() != "internal server error: db locked" {
		t.Fatalf("unexpected message %q", appErr.Error())
	}
	if got := WrapError(CodeNotFound, "ticket not found", nil); got.ServerSide() || got.Error() != "ticket not found" {
		t.Fatalf("4xx should be client side, got %+v", got)
	}
	if got := WrapError(302, "moved", nil); got.Code != CodeInternal {
		t.Fatalf("non-error code should coerce to 500, got %d", got.Code)
	}
}
