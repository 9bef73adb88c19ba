package utils

import "golang.org/x/crypto/bcrypt"

const secretHashCost = 12

// HashSecret hashes a private-message secret. Normalization of the secret is
// the caller's concern; this is a pure primitive.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), secretHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches the stored hash.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
