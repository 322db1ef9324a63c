package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/promptvault-api/internal/utils"
)

// AccessClaims is the token payload accepted by the prompt API. The subject carries the
// numeric user id; user_id is honoured for tokens minted by older issuers.
type AccessClaims struct {
	UserID uint     `json:"user_id,omitempty"`
	Role   string   `json:"role,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// ID resolves the numeric owner id of the token.
func (c AccessClaims) ID() (uint, bool) {
	if subject := strings.TrimSpace(c.Subject); subject != "" {
		parsed, err := strconv.ParseUint(subject, 10, 64)
		if err == nil && parsed > 0 {
			return uint(parsed), true
		}
	}
	if c.UserID > 0 {
		return c.UserID, true
	}
	return 0, false
}

// PrimaryRole returns the first non-empty role, lowercased.
func (c AccessClaims) PrimaryRole() string {
	for _, candidate := range append([]string{c.Role}, c.Roles...) {
		if role := normalizeRoleValue(candidate); role != "" {
			return role
		}
	}
	return ""
}

var tokenParser = jwt.NewParser(
	jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	jwt.WithLeeway(30*time.Second),
)

// JWTProtected validates HMAC bearer tokens and stores user_id and user_role in the request
// locals.
func JWTProtected(secret string) fiber.Handler {
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authorization header missing", nil)
		}

		scheme, tokenString, found := strings.Cut(authorization, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid authorization header", nil)
		}

		var claims AccessClaims
		token, err := tokenParser.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
		}

		userID, ok := claims.ID()
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "token subject missing", nil)
		}

		c.Locals("user_id", userID)
		if role := claims.PrimaryRole(); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}
