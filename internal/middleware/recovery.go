package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
)

// headerWatch remembers whether a response has started.
type headerWatch struct {
	http.ResponseWriter
	started bool
}

func (w *headerWatch) WriteHeader(code int) {
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerWatch) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

// Recovery turns a panicking probe into a logged 500. http.ErrAbortHandler
// is passed through so the server can drop the connection. A response that
// already started is left as is.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hw := &headerWatch{ResponseWriter: w}
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}
			logging.FromContext(r.Context()).Error("handler panicked",
				"panic", p,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", RequestIDFromContext(r.Context()),
				"response_started", hw.started,
				"stack", string(debug.Stack()),
			)
			if !hw.started {
				handler.RespondAppError(hw, handler.ErrInternalError, nil)
			}
		}()
		next.ServeHTTP(hw, r)
	})
}
