package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash of plain using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a bcrypt hash against a plaintext candidate.
// bcrypt's comparison is constant-time over the digest, and a malformed
// stored hash simply yields false rather than an error.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
