package auth

import "golang.org/x/crypto/bcrypt"

const minPasswordLength = 8

// HashPassword rejects short passwords before hashing. bcrypt's own 72-byte
// input cap is far above any sane password field.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
