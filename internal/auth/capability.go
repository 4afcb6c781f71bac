// Package auth verifies admin credentials and turns them into explicit
// capabilities that privileged operations require. Handlers never pass raw
// address strings as proof of authority.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Capability is the verified authority attached to a request.
type Capability struct {
	Admin bool
	Actor string // label for audit trails, e.g. "admin" or "sweep"
}

// SystemCapability is used by internal schedulers (accrual poll, resolution
// sweep), which act with admin authority.
func SystemCapability(actor string) Capability {
	return Capability{Admin: true, Actor: actor}
}

// Verifier checks presented admin secrets against a stored bcrypt hash.
// An empty hash disables admin access entirely rather than allowing it.
type Verifier struct {
	adminHash []byte
}

// NewVerifier creates a Verifier from the configured bcrypt hash of the
// admin secret.
func NewVerifier(adminHash string) *Verifier {
	return &Verifier{adminHash: []byte(adminHash)}
}

// Verify returns an admin capability when the presented secret matches the
// stored hash. Any mismatch, including an unconfigured hash, yields a
// non-admin capability.
func (v *Verifier) Verify(secret string) Capability {
	if len(v.adminHash) == 0 || secret == "" {
		return Capability{}
	}
	if err := bcrypt.CompareHashAndPassword(v.adminHash, []byte(secret)); err != nil {
		return Capability{}
	}
	return Capability{Admin: true, Actor: "admin"}
}

// HashSecret produces a bcrypt hash suitable for the admin_hash config field.
func HashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
