package users

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinAdminKeyLength = 12

// ValidateAdminKeyStrength checks that an admin key is at least
// MinAdminKeyLength characters and mixes upper case, lower case and digits.
func ValidateAdminKeyStrength(key string) error {
	if len(key) < MinAdminKeyLength {
		return fmt.Errorf("admin key must be at least %d characters long", MinAdminKeyLength)
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range key {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("admin key must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("admin key must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("admin key must contain at least one number")
	}

	return nil
}

// HashAdminKey returns the bcrypt hash stored as ADMIN_KEY_HASH.
func HashAdminKey(key string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	return string(bytes), err
}

func CheckAdminKeyHash(key, hash string) bool {
	if key == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}
