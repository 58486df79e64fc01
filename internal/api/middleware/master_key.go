package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixlytaller/fixly-session/internal/core/domain"
)

// HeaderMasterKey carries the caller-supplied deletion secret.
const HeaderMasterKey = "X-Master-Key"

// maxKeyBody bounds how much of a request body is read looking for masterKey.
const maxKeyBody = 4 << 10

// MasterKeyConfig holds the server-side secret. Hash, a bcrypt hash, wins
// over Key when both are set.
type MasterKeyConfig struct {
	Key  string
	Hash string
}

// MasterKey rejects requests whose secret does not match the configured one.
// The secret is read from the X-Master-Key header, or from a JSON body field
// named masterKey. Plain keys are compared in constant time.
func MasterKey(cfg MasterKeyConfig) echo.MiddlewareFunc {
	stored := strings.TrimSpace(cfg.Key)
	hash := strings.TrimSpace(cfg.Hash)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if stored == "" && hash == "" {
				return domain.ErrMasterKeyUnset
			}

			sent := strings.TrimSpace(c.Request().Header.Get(HeaderMasterKey))
			if sent == "" {
				sent = keyFromBody(c)
			}
			if sent == "" || !matches(sent, stored, hash) {
				return domain.ErrMasterKeyInvalid
			}
			return next(c)
		}
	}
}

func matches(sent, stored, hash string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(sent)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(sent), []byte(stored)) == 1
}

// keyFromBody peeks at a JSON body and restores it for the handler.
func keyFromBody(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxKeyBody))
	if err != nil {
		return ""
	}
	req.Body = readCloser{io.MultiReader(bytes.NewReader(raw), req.Body), req.Body}

	var body struct {
		MasterKey string `json:"masterKey"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return strings.TrimSpace(body.MasterKey)
}

type readCloser struct {
	io.Reader
	io.Closer
}
