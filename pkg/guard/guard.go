// Package guard wires the request authorization pipeline: credential
// extraction, session resolution, rule lookup, role resolution, the
// access decision, and execution context construction. Handlers behind
// a guard only ever run with a fully built execution context.
package guard

import (
	"errors"
	"net/http"
	"time"

	"github.com/openlearnhq/atrium/pkg/access"
	"github.com/openlearnhq/atrium/pkg/audit"
	"github.com/openlearnhq/atrium/pkg/auth"
	"github.com/openlearnhq/atrium/pkg/contextkeys"
	"github.com/openlearnhq/atrium/pkg/observability"
	"github.com/openlearnhq/atrium/pkg/scope"
	"github.com/openlearnhq/atrium/pkg/workspaces"
)

// Guard evaluates requests against the active rule table and either
// denies them or hands an execution context to the wrapped handler.
type Guard struct {
	extractor *auth.Extractor
	sessions  *auth.Resolver
	roles     *workspaces.RoleResolver
	table     *access.Table
	engine    *access.Engine
	scopes    *scope.Builder
	recorder  audit.Recorder
	metrics   *observability.Metrics
	logger    *observability.Logger
	tokens    *auth.TokenGenerator
}

type Options struct {
	Extractor *auth.Extractor
	Sessions  *auth.Resolver
	Roles     *workspaces.RoleResolver
	Table     *access.Table
	Engine    *access.Engine
	Scopes    *scope.Builder
	Recorder  audit.Recorder
	Metrics   *observability.Metrics
	Logger    *observability.Logger
}

func New(opts Options) *Guard {
	g := &Guard{
		extractor: opts.Extractor,
		sessions:  opts.Sessions,
		roles:     opts.Roles,
		table:     opts.Table,
		engine:    opts.Engine,
		scopes:    opts.Scopes,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		tokens:    auth.NewTokenGenerator(),
	}
	if g.extractor == nil {
		g.extractor = auth.NewExtractor("")
	}
	if g.engine == nil {
		g.engine = access.NewEngine("", "")
	}
	if g.recorder == nil {
		g.recorder = audit.NopRecorder{}
	}
	if g.logger == nil {
		g.logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return g
}

// evaluation is the outcome of running the pipeline for one request.
type evaluation struct {
	decision   access.Decision
	exec       *scope.ExecutionContext
	rule       *access.Rule
	credPrefix string
}

var errNoRule = errors.New("no rule covers request")

// evaluate runs the pipeline. A request no rule covers fails closed with
// errNoRule; any store failure is returned as-is for a 500 surface.
func (g *Guard) evaluate(r *http.Request) (*evaluation, error) {
	rule, params, ok := g.table.Current().Match(r.Method, r.URL.Path)
	if !ok {
		return nil, errNoRule
	}

	cred, present := g.extractor.Extract(r)
	identity, sessionErr := g.sessions.Resolve(r.Context(), cred, present)
	if sessionErr != nil {
		if _, isSession := auth.AsSessionError(sessionErr); !isSession {
			return nil, sessionErr
		}
	}

	in := access.Input{
		Rule:       rule,
		Path:       r.URL.RequestURI(),
		SessionErr: sessionErr,
		Identity:   identity,
	}

	var ws *workspaces.Workspace
	var membership *workspaces.Membership
	if identity != nil && rule.WorkspaceParam != "" && !rule.Public {
		var err error
		ws, membership, err = g.roles.ResolveRole(r.Context(), identity, params[rule.WorkspaceParam])
		if err != nil &&
			!errors.Is(err, workspaces.ErrWorkspaceNotFound) &&
			!errors.Is(err, workspaces.ErrNoMembership) {
			return nil, err
		}
		in.MembershipErr = err
		in.Membership = membership
	}

	decision := g.engine.Decide(in)

	ev := &evaluation{decision: decision, rule: rule}
	if present {
		ev.credPrefix = g.tokens.ExtractPrefix(cred.Token)
	}
	if decision.Allowed() && identity != nil {
		ev.exec = g.scopes.Build(*identity, ws, membership)
	}
	return ev, nil
}

// finish records the decision in metrics, the audit trail, and the log.
func (g *Guard) finish(r *http.Request, ev *evaluation, started time.Time) {
	outcome := string(ev.decision.Outcome)
	if g.metrics != nil {
		g.metrics.ObserveDecision(string(ev.rule.Guard), outcome, time.Since(started))
	}

	accountID := ""
	workspaceID := ""
	if ev.exec != nil {
		accountID = ev.exec.AccountID()
		workspaceID = ev.exec.WorkspaceID()
	} else {
		accountID = contextkeys.GetAccountID(r.Context())
	}

	if audit.ShouldRecord(outcome, r.Method) {
		g.recorder.Record(r.Context(), audit.Entry{
			AccountID:   accountID,
			WorkspaceID: workspaceID,
			Method:      r.Method,
			Path:        r.URL.Path,
			Outcome:     outcome,
			Reason:      ev.decision.Reason,
			OccurredAt:  time.Now().UTC(),
		})
	}

	if !ev.decision.Allowed() {
		fields := map[string]interface{}{
			"account_id": accountID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"outcome":    outcome,
			"reason":     ev.decision.Reason,
		}
		// The prefix lets a denial be correlated with a session without
		// ever logging the full credential.
		if ev.credPrefix != "" {
			fields["token_prefix"] = ev.credPrefix
		}
		g.logger.WithFields(fields).Warn("request denied")
	}
}

func (g *Guard) internal(r *http.Request, err error) {
	g.logger.WithError(err).
		WithField("path", r.URL.Path).
		Error("guard pipeline failure")
}
