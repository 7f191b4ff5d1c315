package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"SG-AUTH-4010", http.StatusUnauthorized},
		{"SG-AUTH-4012", http.StatusUnauthorized},
		{"SG-AUTH-4013", http.StatusUnauthorized},
		{"SG-AUTH-4014", http.StatusUnauthorized},
		{"SG-AUTH-4290", http.StatusTooManyRequests},
		{"SG-SESS-4040", http.StatusNotFound},
		{"SG-USER-4040", http.StatusNotFound},
		{"SG-USER-4090", http.StatusConflict},
		{"SG-USER-4001", http.StatusBadRequest},
		{"SG-SYS-4000", http.StatusBadRequest},
		{"SG-ARG-1002", http.StatusBadRequest},
		{"SG-SYS-5000", http.StatusInternalServerError},
		{"SG-SYS-5001", http.StatusInternalServerError},
		{"bogus", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestCookiePolicyIssue(t *testing.T) {
	rr := httptest.NewRecorder()
	expires := time.Now().Add(time.Hour).UTC()
	CookiePolicy{Secure: true}.Issue(rr, "sgus-user", "signed-token", expires)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("cookies set = %d, want 2", len(cookies))
	}
	for _, c := range cookies {
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode || c.Path != "/" {
			t.Errorf("cookie %s attributes wrong: %+v", c.Name, c)
		}
		if c.Expires.Unix() != expires.Unix() {
			t.Errorf("cookie %s expires = %v, want %v", c.Name, c.Expires, expires)
		}
	}
}

func TestCookiePolicyClear(t *testing.T) {
	rr := httptest.NewRecorder()
	CookiePolicy{}.Clear(rr)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("cookies set = %d, want 2", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge >= 0 || c.Value != "" {
			t.Errorf("cookie %s not cleared: %+v", c.Name, c)
		}
	}
}

func TestReadCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: UserCookieName, Value: "sgus-user"})
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "signed-token"})

	userID, token := ReadCredentials(req)
	if userID != "sgus-user" || token != "signed-token" {
		t.Errorf("ReadCredentials = (%q, %q)", userID, token)
	}

	userID, token = ReadCredentials(httptest.NewRequest(http.MethodGet, "/", nil))
	if userID != "" || token != "" {
		t.Errorf("bare request: ReadCredentials = (%q, %q), want empty", userID, token)
	}
}
