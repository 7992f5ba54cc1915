package middleware

import (
	"strings"

	"genieq-api/internal/core/domain"
	"genieq-api/internal/pkg/jwt"
	"genieq-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// publicPaths never need a principal
var publicPaths = map[string]bool{
	"/":                        true,
	"/api/v1/auth/login":       true,
	"/api/v1/auth/register":    true,
	"/api/v1/auth/refresh":     true,
	"/api/v1/auth/logout":      true,
	"/api/v1/tickets":          true,
	"/api/v1/payments/webhook": true,
}

func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/swagger/")
}

// Authenticate resolves the bearer access token into a principal. It never
// rejects: requests without a valid access token simply carry no principal
// and RequireAuth or RequireRole decide what that means for the route.
func Authenticate(authority *jwt.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions || isPublic(c.Path()) {
			return c.Next()
		}

		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := authority.ParseAccess(token)
		if err != nil {
			return c.Next()
		}

		c.Locals(principalKey, domain.Principal{
			MemberID: claims.MemberID,
			Role:     domain.NormalizeRole(claims.Role),
		})
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// PrincipalFrom returns the principal attached by Authenticate
func PrincipalFrom(c *fiber.Ctx) (domain.Principal, bool) {
	p, ok := c.Locals(principalKey).(domain.Principal)
	return p, ok
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFrom(c); !ok {
			return response.Unauthorized(c, "Authentication required")
		}
		return c.Next()
	}
}

// RequireRole allows only the listed roles; anonymous requests get 401, others 403
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return response.Unauthorized(c, "Authentication required")
		}

		for _, role := range roles {
			if p.Role == domain.NormalizeRole(role) {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only ROLE_ADMIN
func AdminOnly() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
