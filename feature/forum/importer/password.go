package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// hashPassword returns the value to store in users.password_hash.
// Existing bcrypt hashes are kept as they are, plaintext is hashed with cost,
// and an empty password becomes the hash of a random secret so the account
// cannot be logged into until a reset.
func hashPassword(password string, cost int) (string, error) {
	if isBcryptHash(password) {
		return password, nil
	}
	if password == "" {
		password = uuid.NewString()
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func isBcryptHash(s string) bool {
	if !strings.HasPrefix(s, "$2a$") && !strings.HasPrefix(s, "$2b$") && !strings.HasPrefix(s, "$2y$") {
		return false
	}
	cost, err := bcrypt.Cost([]byte(s))
	return err == nil && cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost
}
