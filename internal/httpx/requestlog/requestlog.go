// Package requestlog is chi's request logger with credentials removed from
// the logged URL.
package requestlog

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// sensitiveParams are query parameters never written to the log
var sensitiveParams = []string{"token", "access_token"}

const redacted = "REDACTED"

// New returns request logging middleware printing to logger
func New(logger middleware.LoggerInterface) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&formatter{
		next: &middleware.DefaultLogFormatter{Logger: logger, NoColor: true},
	})
}

type formatter struct {
	next middleware.LogFormatter
}

func (f *formatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return f.next.NewLogEntry(Redact(r))
}

// Redact returns r, or a shallow copy of it whose URL has sensitive query
// parameters replaced. The original request is left untouched.
func Redact(r *http.Request) *http.Request {
	q := r.URL.Query()
	found := false
	for _, p := range sensitiveParams {
		if q.Has(p) {
			q.Set(p, redacted)
			found = true
		}
	}
	if !found {
		return r
	}

	u := *r.URL
	u.RawQuery = q.Encode()

	rc := r.WithContext(r.Context())
	rc.URL = &u
	rc.RequestURI = u.RequestURI()
	return rc
}
