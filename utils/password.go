package utils

import "golang.org/x/crypto/bcrypt"

// bcryptCost trades login latency for offline brute-force resistance.
const bcryptCost = 10

// HashPassword returns the salted bcrypt digest of the password. The digest
// embeds its salt and cost, so verification needs no extra state.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible
// plaintext equivalent. A mismatch is not an error, just false.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
