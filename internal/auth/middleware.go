package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const actorKey = "auth_actor"

// AuthMiddleware validates bearer tokens and loads the officer behind them.
type AuthMiddleware struct {
	tokens   *TokenManager
	officers repository.OfficerRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, officers repository.OfficerRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, officers: officers}
}

// Handle enforces authentication for protected routes. The actor's scope is
// read from the officer record so a reassignment takes effect immediately.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	officer, err := m.officers.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("officer not found")
		}
		return apperrors.MapError(err)
	}
	if !officer.Active {
		return apperrors.NewUnauthorized("officer inactive")
	}

	c.Locals(actorKey, officer.Actor())
	return c.Next()
}

// ActorFromContext retrieves the authenticated officer's actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}
