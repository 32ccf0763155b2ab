package middleware

import (
	"context"
	"net/http"
	"strings"

	"jobfair/pkg/auth"
	apperrors "jobfair/pkg/errors"
	httputil "jobfair/pkg/http"
	"jobfair/pkg/logger"
	"jobfair/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const actorKey contextKey = "actor"

// ActorLoader resolves the user behind a verified token. It returns an AppError
// when the user no longer exists.
type ActorLoader interface {
	LoadActor(ctx context.Context, userID string) (model.Actor, error)
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok && actor.UserID != ""
}

type Authenticator struct {
	tokens *auth.TokenManager
	users  ActorLoader
	log    *logger.Logger
}

func NewAuthenticator(tokens *auth.TokenManager, users ActorLoader, log *logger.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

// Protect verifies the bearer token and reloads the user, so a deleted user or a
// changed role takes effect immediately.
func (a *Authenticator) Protect(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := bearerToken(r)
		if token == "" {
			_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized, no token"))
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			a.log.Debug("Rejected bearer token",
				"request_id", RequestIDFromContext(r.Context()),
				"error", err,
			)
			_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		actor, err := a.users.LoadActor(r.Context(), claims.Subject)
		if err != nil {
			if !apperrors.IsAppError(err) {
				a.log.Error("Failed to load user for token",
					"request_id", RequestIDFromContext(r.Context()),
					"user_id", claims.Subject,
					"error", err,
				)
				err = apperrors.StorageFailure("Failed to authenticate request", err)
			}
			_ = httputil.WriteError(w, err)
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)), ps)
	}
}

// RequireRole must wrap a handler already behind Protect.
func RequireRole(roles ...string) func(httprouter.Handle) httprouter.Handle {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized"))
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				_ = httputil.WriteError(w, apperrors.Forbidden("User role "+actor.Role+" is not authorized to access this route"))
				return
			}
			next(w, r, ps)
		}
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
