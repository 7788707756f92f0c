package auth

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	placeholderOnce sync.Once
	placeholderHash []byte
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPasswordUnknownUser runs a full bcrypt comparison against a random
// hash and always reports false. Login uses it when the username does not
// exist so both failure paths cost the same.
func CheckPasswordUnknownUser(password string) bool {
	placeholderOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err == nil {
			placeholderHash = hash
		}
	})
	if placeholderHash != nil {
		_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
	}
	return false
}
