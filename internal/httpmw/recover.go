package httpmw

import (
	"net/http"
	"runtime/debug"

	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// Recover turns a handler panic into a 500, logs it with the stack and calls
// onPanic (typically a metrics counter). http.ErrAbortHandler is re-panicked
// so net/http can abort the connection quietly.
func Recover(l log.Logger, onPanic func()) Middleware {
	if l == nil {
		l = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if onPanic != nil {
					onPanic()
				}
				err := xerrors.Newf("panic: %v", rec)
				l.Error(r.Context(), err, "http handler panic",
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
					"panic_stack", string(debug.Stack()),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
