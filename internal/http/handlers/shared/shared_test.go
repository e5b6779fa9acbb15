package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

func serveError(t *testing.T, err error) (int, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { RespondServiceError(c, err, "operation failed") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	var resp struct {
		StatusCode int    `json:"status_code"`
		Message    string `json:"message"`
	}
	if jsonErr := json.Unmarshal(w.Body.Bytes(), &resp); jsonErr != nil {
		t.Fatalf("unmarshal: %v", jsonErr)
	}
	if resp.StatusCode != w.Code {
		t.Fatalf("status_code %d must equal http status %d", resp.StatusCode, w.Code)
	}
	return w.Code, resp.Message
}

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "validation", err: &service.ValidationError{Field: "email", Message: "is required"}, code: 400, msg: "email: is required"},
		{name: "conflict", err: &service.ConflictError{Field: "phone"}, code: 409, msg: "phone already exists"},
		{name: "closed", err: fmt.Errorf("reply: %w", service.ErrTicketClosed), code: 403, msg: "this ticket has been closed, you cannot add new replies"},
		{name: "retake", err: &service.RetakeLockedError{}, code: 403, msg: "forbidden"},
		{name: "upload", err: fmt.Errorf("%w: bucket offline", service.ErrUploadFailed), code: 502, msg: "file upload failed"},
		{name: "unknown", err: fmt.Errorf("disk on fire"), code: 500, msg: "operation failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg := serveError(t, tc.err)
			if code != tc.code || msg != tc.msg {
				t.Fatalf("want %d %q got %d %q", tc.code, tc.msg, code, msg)
			}
		})
	}
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query     string
		max       int
		wantPage  int
		wantLimit int
	}{
		{query: "", max: 100, wantPage: 1, wantLimit: 20},
		{query: "page=3&limit=500", max: 100, wantPage: 3, wantLimit: 100},
		{query: "page=-1&page_size=30", max: 50, wantPage: 1, wantLimit: 30},
		{query: "page_size=80", max: 50, wantPage: 1, wantLimit: 50},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/x?"+tc.query, nil)
		page, limit := ParsePagination(c, tc.max)
		if page != tc.wantPage || limit != tc.wantLimit {
			t.Fatalf("%q: want %d/%d got %d/%d", tc.query, tc.wantPage, tc.wantLimit, page, limit)
		}
	}
}

func TestCustomValidationTags(t *testing.T) {
	if err := RegisterValidators(); err != nil {
		t.Fatalf("register validators: %v", err)
	}
	type form struct {
		IDNumber string `json:"id_number" binding:"required,sa_id"`
		Phone    string `json:"phone" binding:"omitempty,phone"`
	}
	gin.SetMode(gin.TestMode)
	cases := []struct {
		body string
		ok   bool
		msg  string
	}{
		{body: `{"id_number":"8001015009087","phone":"+27 82 123 4567"}`, ok: true},
		{body: `{"id_number":"8001015009088"}`, msg: "id_number: must be a valid South African ID number"},
		{body: `{"id_number":"8001015009087","phone":"12"}`, msg: "phone: must be a valid phone number"},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tc.body))
		c.Request.Header.Set("Content-Type", "application/json")
		var f form
		err := c.ShouldBindJSON(&f)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s should bind: %v", tc.body, err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%s should fail", tc.body)
		}
		if got := describeBindError(err); got != tc.msg {
			t.Fatalf("want %q got %q", tc.msg, got)
		}
	}
}

func TestBindErrorUsesFormFieldName(t *testing.T) {
	if err := RegisterValidators(); err != nil {
		t.Fatalf("register validators: %v", err)
	}
	type applyForm struct {
		IDNumber  string `form:"id_number" binding:"required,sa_id"`
		FirstName string `form:"first_name" binding:"required"`
	}
	gin.SetMode(gin.TestMode)
	cases := []struct {
		body string
		msg  string
	}{
		{body: "id_number=123&first_name=Ann", msg: "id_number: must be a valid South African ID number"},
		{body: "id_number=8001015009087", msg: "first_name: is required"},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/apply", strings.NewReader(tc.body))
		c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var f applyForm
		err := c.ShouldBind(&f)
		if err == nil {
			t.Fatalf("%s should fail", tc.body)
		}
		if got := describeBindError(err); got != tc.msg {
			t.Fatalf("want %q got %q", tc.msg, got)
		}
	}
}
