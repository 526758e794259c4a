package utils

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// emailPattern is the basic email shape required of usernames.
var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w\-]+\.)+[\w\-]{2,4}$`)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidUsername reports whether username looks like an email address.
func ValidUsername(username string) bool {
	return emailPattern.MatchString(username)
}

// ValidPassword reports whether password meets the registration policy:
// at least 8 characters with at least one digit, one uppercase and one
// lowercase letter. Implemented as a scan because RE2 has no lookahead.
// The length is counted in characters so multibyte passwords are not
// over-counted.
func ValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var digit, upper, lower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return digit && upper && lower
}
