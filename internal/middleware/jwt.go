package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/academy-reconcile-api/internal/utils"
)

// Locals keys populated from a verified token.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// OperatorClaims is the token issued to console operators by the identity service.
type OperatorClaims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// PrimaryRole returns the first non-empty role, lower-cased.
func (c OperatorClaims) PrimaryRole() string {
	if role := strings.ToLower(strings.TrimSpace(c.Role)); role != "" {
		return role
	}
	for _, candidate := range c.Roles {
		if role := strings.ToLower(strings.TrimSpace(candidate)); role != "" {
			return role
		}
	}
	return ""
}

// OperatorID parses the numeric subject.
func (c OperatorClaims) OperatorID() (uint, error) {
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return 0, errors.New("token subject missing")
	}
	parsed, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, errors.New("token subject is not numeric")
	}
	return uint(parsed), nil
}

// JWTProtected validates HMAC-signed bearer tokens and stores the operator id and role in Locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		scheme, tokenString, found := strings.Cut(authorization, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		var claims OperatorClaims
		token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		operatorID, err := claims.OperatorID()
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(LocalUserID, operatorID)
		if role := claims.PrimaryRole(); role != "" {
			c.Locals(LocalUserRole, role)
		}

		return c.Next()
	}
}
