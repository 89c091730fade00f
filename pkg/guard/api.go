package guard

import (
	"net/http"
	"time"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/contextkeys"
	"github.com/openlearnhq/atrium/pkg/httputil"
	"github.com/openlearnhq/atrium/pkg/scope"
)

// APIHandler is a JSON handler running behind the API guard. A returned
// *httputil.HTTPError becomes the response envelope; any other error is
// logged and surfaced as an opaque 500.
type APIHandler func(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext) error

// API wraps a JSON handler with the authorization pipeline. Denials are
// written as error envelopes with the status codes fixed by the decision
// engine.
func (g *Guard) API(h APIHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		ev, err := g.evaluate(r)
		if err != nil {
			if err == errNoRule {
				httputil.WriteNotFound(w, "not found")
				return
			}
			g.internal(r, err)
			httputil.WriteInternalError(w)
			return
		}
		g.finish(r, ev, started)

		switch ev.decision.Outcome {
		case access.Allow:
		case access.DenyUnauthenticated:
			httputil.WriteUnauthorized(w, "authentication required")
			return
		case access.DenyNotFound:
			httputil.WriteNotFound(w, "not found")
			return
		default:
			httputil.WriteForbidden(w, "access denied")
			return
		}

		ctx := scope.NewContext(r.Context(), ev.exec)
		if ev.exec != nil {
			ctx = contextkeys.WithAccountID(ctx, ev.exec.AccountID())
		}
		r = r.WithContext(ctx)

		if err := h(w, r, ev.exec); err != nil {
			if httpErr, ok := httputil.AsHTTPError(err); ok {
				httputil.WriteError(w, httpErr.Status, httpErr.Message, httpErr.Code)
				return
			}
			g.internal(r, err)
			httputil.WriteInternalError(w)
		}
	}
}
