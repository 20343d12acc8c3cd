package access

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"authcore/internal/core/apperror"
	"authcore/pkg/logger"
)

var tracer = otel.Tracer("authcore/access")

// GrantEvaluator answers the yes/no question "is principal P allowed to do
// action A in context C".
//
// Unauthorized is the boolean false, never an error: callers can check many
// principals and contexts without per-item error handling. Errors signal
// programming mistakes (unknown permission in strict mode, illegal context)
// or infrastructure failure only.
type GrantEvaluator struct {
	catalog  *Catalog
	resolver *RoleResolver
}

// NewGrantEvaluator creates an evaluator.
func NewGrantEvaluator(catalog *Catalog, resolver *RoleResolver) *GrantEvaluator {
	return &GrantEvaluator{catalog: catalog, resolver: resolver}
}

// Allowed evaluates a permission check. Unknown permissions evaluate to
// false without error; use AllowedStrict when a missing permission should
// surface as a programming error instead.
func (e *GrantEvaluator) Allowed(ctx context.Context, session *Session, principal *Principal, action Action, ec EvalContext) (bool, error) {
	return e.allowed(ctx, session, principal, action, ec, false)
}

// AllowedStrict behaves like Allowed but fails with UNKNOWN_PERMISSION when
// the action does not resolve to any registered permission.
func (e *GrantEvaluator) AllowedStrict(ctx context.Context, session *Session, principal *Principal, action Action, ec EvalContext) (bool, error) {
	return e.allowed(ctx, session, principal, action, ec, true)
}

// AllowedAny reports whether the principal is allowed at least one of the
// actions in at least one of the contexts. Pass global to include the
// global context; supplying neither contexts nor global is an error.
func (e *GrantEvaluator) AllowedAny(ctx context.Context, session *Session, principal *Principal, actions []Action, contexts []EvalContext, global bool) (bool, error) {
	if len(contexts) == 0 && !global {
		return false, apperror.NewValidation("allowed_any requires contexts or global")
	}
	if global {
		contexts = append(contexts, Global())
	}

	for _, action := range actions {
		for _, ec := range contexts {
			allowed, err := e.allowed(ctx, session, principal, action, ec, false)
			if err != nil {
				return false, err
			}
			if allowed {
				return true, nil
			}
		}
	}
	return false, nil
}

func (e *GrantEvaluator) allowed(ctx context.Context, session *Session, principal *Principal, action Action, ec EvalContext, strict bool) (bool, error) {
	ctx, span := tracer.Start(ctx, "access.allowed",
		trace.WithAttributes(
			attribute.String("principal_id", principal.ID.String()),
			attribute.String("action", action.String()),
			attribute.String("context", ec.Key()),
		))
	defer span.End()

	if session != nil && !session.matches(principal.ID) {
		return false, apperror.NewValidation("session belongs to a different principal").
			WithDetail("session_principal_id", session.PrincipalID()).
			WithDetail("principal_id", principal.ID)
	}

	if principal.Locked {
		return false, nil
	}

	perms, err := e.catalog.ContextualPermissions(action, ec.Kind, strict)
	if err != nil {
		return false, err
	}
	if len(perms) == 0 {
		logger.Debug(ctx, "permission does not resolve, denying",
			"action", action.String(),
		)
		return false, nil
	}

	if allowed, ok := session.CachedDecision(ec.Key(), perms); ok {
		span.SetAttributes(attribute.Bool("cached", true))
		return allowed, nil
	}

	allowed, err := e.evaluate(ctx, session, principal, perms, ec)
	if err != nil {
		return false, err
	}

	session.StoreDecision(ec.Key(), perms, allowed)
	span.SetAttributes(attribute.Bool("allowed", allowed))
	return allowed, nil
}

func (e *GrantEvaluator) evaluate(ctx context.Context, session *Session, principal *Principal, perms []Permission, ec EvalContext) (bool, error) {
	project := ec.Project

	// Archived projects deny everything, admins included, except the
	// discovery read path.
	if project != nil && !project.Active {
		if !principal.Admin || !principal.Active {
			return false, nil
		}
		for _, p := range perms {
			if p.VisibleOnArchived && p.GrantToAdmin {
				return true, nil
			}
		}
		return false, nil
	}

	if principal.Admin && principal.Active && allGrantToAdmin(perms) {
		for _, p := range perms {
			if moduleEnabled(p, project) {
				return true, nil
			}
		}
		// Required modules disabled; fall through to the membership path,
		// which applies the same gate and denies consistently.
	}

	assignments, err := e.resolvedAssignments(ctx, session, principal, ec)
	if err != nil {
		return false, err
	}

	granted := make(map[string]struct{})
	for _, a := range assignments {
		for _, name := range a.Role.Permissions {
			granted[name] = struct{}{}
		}
	}

	for _, p := range perms {
		if !moduleEnabled(p, project) {
			continue
		}
		// Public permissions hold on public projects without any role
		// assignment, for members, non-members and anonymous alike.
		if p.GrantToPublic && project != nil && project.Public {
			return true, nil
		}
		if _, ok := granted[p.Name]; ok {
			return true, nil
		}
	}
	return false, nil
}

// resolvedAssignments fetches roles through the session cache so a batch of
// checks against the same scope resolves roles once.
func (e *GrantEvaluator) resolvedAssignments(ctx context.Context, session *Session, principal *Principal, ec EvalContext) ([]RoleAssignment, error) {
	scopeKey := ec.Key()
	if assignments, ok := session.cachedAssignments(scopeKey); ok {
		return assignments, nil
	}

	assignments, err := e.resolver.RolesFor(ctx, principal, ec)
	if err != nil {
		return nil, err
	}
	session.storeAssignments(scopeKey, assignments)
	return assignments, nil
}

func allGrantToAdmin(perms []Permission) bool {
	for _, p := range perms {
		if !p.GrantToAdmin {
			return false
		}
	}
	return true
}

func moduleEnabled(p Permission, project *Project) bool {
	if p.Module == "" || project == nil {
		return true
	}
	return project.ModuleEnabled(p.Module)
}
