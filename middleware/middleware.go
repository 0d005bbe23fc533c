package middleware

import (
	"crypto/rand"
)

// SESSION_COOKIE identifies the grid session of a browser.
const SESSION_COOKIE = "grid_session"

type Middleware struct {
	csrfKey        []byte
	trustedOrigins []string
}

func NewMiddleware(trustedOrigins ...string) *Middleware {
	csrfKey := make([]byte, 32)
	n, err := rand.Read(csrfKey)
	if err != nil {
		panic(err)
	}
	if n != 32 {
		panic("unable to read 32 bytes for CSRF key")
	}

	if len(trustedOrigins) == 0 {
		trustedOrigins = []string{"localhost:3000", "127.0.0.1:3000"}
	}

	return &Middleware{
		csrfKey:        csrfKey,
		trustedOrigins: trustedOrigins,
	}
}
