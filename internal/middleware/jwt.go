package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/tutorq-api/internal/utils"
)

const principalKey = "principal"

// Principal is the authenticated operator behind an admin request.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the principal carries any of the given roles.
func (p Principal) HasRole(roles ...string) bool {
	for _, held := range p.Roles {
		for _, role := range roles {
			if strings.EqualFold(held, strings.TrimSpace(role)) {
				return true
			}
		}
	}
	return false
}

// accessClaims accepts a single "role" or a "roles" list.
type accessClaims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c accessClaims) principal() Principal {
	roles := make([]string, 0, len(c.Roles)+1)
	for _, role := range append([]string{c.Role}, c.Roles...) {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			roles = append(roles, role)
		}
	}
	return Principal{Subject: strings.TrimSpace(c.Subject), Roles: roles}
}

var signingMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// JWTProtected validates HMAC-signed bearer tokens and stores the resulting
// Principal on the request.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods(signingMethods), jwt.WithExpirationRequired())
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing bearer token")
		}

		var claims accessClaims
		if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		principal := claims.principal()
		if principal.Subject == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token has no subject")
		}

		c.Locals(principalKey, principal)
		c.Locals("user_id", principal.Subject)
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by JWTProtected.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(principalKey).(Principal)
	return principal, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
