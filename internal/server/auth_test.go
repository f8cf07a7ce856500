package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestWithAuthAcceptsSignedToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := SignJWT("ops", secret, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var subject string
	next := func(c echo.Context) error {
		subject, _ = c.Get("subject").(string)
		return c.NoContent(http.StatusOK)
	}
	if err := withAuth(secret)(next)(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if subject != "ops" {
		t.Fatalf("subject = %q, want ops", subject)
	}
}

func TestWithAuthRejectsBadToken(t *testing.T) {
	e := echo.New()
	for _, header := range []string{"", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := withAuth([]byte("secret"))(func(echo.Context) error { return nil })(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: err = %v, want 401", header, err)
		}
	}
}

func TestWithAuthRejectsWrongSecret(t *testing.T) {
	token, err := SignJWT("ops", []byte("secret-a"), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err = withAuth([]byte("secret-b"))(func(echo.Context) error { return nil })(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
}
