package guard

import (
	"net/http"
	"time"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/contextkeys"
	"github.com/openlearnhq/atrium/pkg/scope"
)

// PageHandler renders an HTML page behind the page guard.
type PageHandler func(w http.ResponseWriter, r *http.Request, ec *scope.ExecutionContext)

// Page wraps a page handler with the authorization pipeline. Denied
// browsers are redirected: unauthenticated to the login page with the
// original URL in return_to, forbidden to the forbidden page. A missing
// workspace renders plain 404.
func (g *Guard) Page(h PageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		ev, err := g.evaluate(r)
		if err != nil {
			if err == errNoRule {
				http.NotFound(w, r)
				return
			}
			g.internal(r, err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		g.finish(r, ev, started)

		switch ev.decision.Outcome {
		case access.Allow:
		case access.DenyNotFound:
			http.NotFound(w, r)
			return
		default:
			// Unauthenticated and forbidden both carry a redirect target.
			http.Redirect(w, r, ev.decision.RedirectTarget, http.StatusFound)
			return
		}

		ctx := scope.NewContext(r.Context(), ev.exec)
		if ev.exec != nil {
			ctx = contextkeys.WithAccountID(ctx, ev.exec.AccountID())
		}
		h(w, r.WithContext(ctx), ev.exec)
	}
}
