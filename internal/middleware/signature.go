package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the gateway's HMAC-SHA256 signature of the raw body.
const SignatureHeader = "X-Zini-Signature"

// SignatureMiddleware authenticates gateway callbacks. The expected signature
// is an HMAC-SHA256 over the exact raw request body keyed with the shared
// webhook secret; comparison is constant-time. A bad or missing signature is
// rejected before any state is touched.
func SignatureMiddleware(secret string) fiber.Handler {
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		provided, err := hex.DecodeString(c.Get(SignatureHeader))
		if err != nil || len(provided) == 0 {
			return writeSignatureError(c)
		}

		mac := hmac.New(sha256.New, key)
		mac.Write(c.Body())
		if !hmac.Equal(provided, mac.Sum(nil)) {
			return writeSignatureError(c)
		}

		return c.Next()
	}
}

func writeSignatureError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "invalid signature",
	})
}
