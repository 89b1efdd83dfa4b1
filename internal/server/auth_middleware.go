package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gigboard/internal/auth"
	"gigboard/internal/middleware"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// Require authenticates the bearer token and checks the caller's role
// against action. Ownership checks stay with the operation.
func (s *Server) Require(action auth.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.gate.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return s.fail(c, err)
		}
		if err := s.gate.Authorize(id, action); err != nil {
			return s.fail(c, err)
		}

		s.setIdentity(c, id)
		return c.Next()
	}
}

func (s *Server) setIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(identityLocal, id)
	c.Locals("userID", id.ID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), id.ID))
}

// identity returns the caller stored by Require. Handlers behind Require
// can rely on it being present.
func identity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityLocal).(*auth.Identity)
	return id
}

// optionalIdentity authenticates the caller when a bearer token is present.
// Any failure is treated as an anonymous request.
func (s *Server) optionalIdentity(c *fiber.Ctx) *auth.Identity {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return nil
	}
	id, err := s.gate.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return nil
	}
	s.setIdentity(c, id)
	return id
}

// viewerOf identifies the reader of a service for view counting. Anonymous
// readers are fingerprinted by address and user agent.
func (s *Server) viewerOf(c *fiber.Ctx) service.Viewer {
	if id := s.optionalIdentity(c); id != nil {
		return service.Viewer{UserID: id.ID, Session: fmt.Sprintf("user:%d", id.ID)}
	}
	sum := sha256.Sum256([]byte(c.IP() + "|" + c.Get(fiber.HeaderUserAgent)))
	return service.Viewer{Session: "anon:" + hex.EncodeToString(sum[:16])}
}
