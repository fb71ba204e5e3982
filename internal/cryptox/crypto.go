// Package cryptox wraps the password hashing scheme used by the identity
// service. bcrypt embeds a per-call random salt in the hash it produces and
// performs its own constant-time comparison on verify, so hashes are never
// compared as plain strings.
package cryptox

import "golang.org/x/crypto/bcrypt"

// HashCost is the bcrypt cost factor used for new hashes. 12 keeps offline
// brute force expensive while staying inside interactive login latency.
const HashCost = 12

// HashPassword returns the bcrypt hash of password at HashCost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
