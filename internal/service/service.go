// Package service implements the marketplace use cases on top of the
// repositories. Handlers call into it; it never touches HTTP.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gigboard/internal/mailer"
	"gigboard/internal/tasks"
)

// notifier renders and sends email on the background runner.
type notifier struct {
	runner tasks.Runner
	mail   mailer.Mailer
	links  mailer.Links
}

func (n notifier) send(name string, build func(mailer.Links) (mailer.Message, error)) {
	if n.mail == nil || n.runner == nil {
		return
	}
	n.runner.Go("email:"+name, func(ctx context.Context) error {
		msg, err := build(n.links)
		if err != nil {
			return err
		}
		return n.mail.Send(ctx, msg)
	})
}

// newOpaqueToken returns a random token for the user and the hash stored in
// the database.
func newOpaqueToken() (raw, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
