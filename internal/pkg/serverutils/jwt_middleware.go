package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// NewJwtMiddleware verifies the bearer token (HS256 only) against the
// configured secret and stores the caller's user id in Locals("user_id").
// onFail, when non-nil, is invoked with the rejection reason before the
// 401 is written.
func NewJwtMiddleware(secret string, onFail func(ctx *fiber.Ctx, reason string)) fiber.Handler {
	reject := func(ctx *fiber.Ctx, reason, message string) error {
		if onFail != nil {
			onFail(ctx, reason)
		}
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("UNAUTHORIZED", message))
	}

	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return reject(ctx, "missing_token", "Missing token")
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))

		if err != nil || !token.Valid {
			return reject(ctx, "invalid_token", "Invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return reject(ctx, "invalid_claims", "Invalid claims")
		}

		userId, ok := claims["user_id"].(string)
		if !ok || userId == "" || len(userId) > 255 {
			return reject(ctx, "invalid_claims", "Invalid claims")
		}

		ctx.Locals("user_id", userId)
		return ctx.Next()
	}
}
