package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

func runMasterKey(t *testing.T, cfg MasterKeyConfig, req *http.Request) (called bool, body string, err error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := MasterKey(cfg)(func(c echo.Context) error {
		called = true
		raw, _ := io.ReadAll(c.Request().Body)
		body = string(raw)
		return c.NoContent(http.StatusOK)
	})
	err = handler(c)
	return called, body, err
}

func TestMasterKey_HeaderMatches(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/historial/42", nil)
	req.Header.Set(HeaderMasterKey, "  s3cret ")

	called, _, err := runMasterKey(t, MasterKeyConfig{Key: "s3cret"}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestMasterKey_WrongKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/historial/42", nil)
	req.Header.Set(HeaderMasterKey, "guess")

	called, _, err := runMasterKey(t, MasterKeyConfig{Key: "s3cret"}, req)
	if !errors.Is(err, domain.ErrMasterKeyInvalid) {
		t.Fatalf("expected ErrMasterKeyInvalid, got %v", err)
	}
	if called {
		t.Fatalf("next must not be called")
	}
}

func TestMasterKey_MissingKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/historial/42", nil)

	_, _, err := runMasterKey(t, MasterKeyConfig{Key: "s3cret"}, req)
	if !errors.Is(err, domain.ErrMasterKeyInvalid) {
		t.Fatalf("expected ErrMasterKeyInvalid, got %v", err)
	}
}

func TestMasterKey_Unconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/historial/42", nil)
	req.Header.Set(HeaderMasterKey, "anything")

	_, _, err := runMasterKey(t, MasterKeyConfig{}, req)
	if !errors.Is(err, domain.ErrMasterKeyUnset) {
		t.Fatalf("expected ErrMasterKeyUnset, got %v", err)
	}
}

func TestMasterKey_BodyFieldIsRestored(t *testing.T) {
	payload := `{"masterKey":"s3cret"}`
	req := httptest.NewRequest(http.MethodDelete, "/api/historial/42", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	called, body, err := runMasterKey(t, MasterKeyConfig{Key: "s3cret"}, req)
	if err != nil || !called {
		t.Fatalf("expected pass-through, called=%v err=%v", called, err)
	}
	if body != payload {
		t.Fatalf("body not restored, got %q", body)
	}
}

func TestMasterKey_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := MasterKeyConfig{Key: "ignored", Hash: string(hash)}

	req := httptest.NewRequest(http.MethodDelete, "/api/historial/42", nil)
	req.Header.Set(HeaderMasterKey, "s3cret")
	if called, _, err := runMasterKey(t, cfg, req); err != nil || !called {
		t.Fatalf("expected hash match, called=%v err=%v", called, err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/historial/42", nil)
	req.Header.Set(HeaderMasterKey, "ignored")
	if _, _, err := runMasterKey(t, cfg, req); !errors.Is(err, domain.ErrMasterKeyInvalid) {
		t.Fatalf("plain key must not be accepted when a hash is set, got %v", err)
	}
}
