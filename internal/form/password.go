package form

import (
	"strings"

	"boltvault/internal/gateway"
)

const (
	MsgWeakPassword     = "Password must be 8+ characters with uppercase, lowercase, number, and special character."
	MsgPasswordMismatch = "Passwords do not match."

	passwordSpecials = "@$!%*?&"
	minPasswordLen   = 8
)

// ValidatePassword enforces the account password policy: at least eight
// characters from letters, digits and @$!%*?&, with at least one of each
// lower case, upper case, digit and special character.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return gateway.NewValidationError("password", MsgWeakPassword)
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return gateway.NewValidationError("password", MsgWeakPassword)
		}
	}

	if !lower || !upper || !digit || !special {
		return gateway.NewValidationError("password", MsgWeakPassword)
	}

	return nil
}

// ValidatePasswordChange checks the confirmation before the policy.
func ValidatePasswordChange(password, confirm string) error {
	if password != confirm {
		return gateway.NewValidationError("confirm_password", MsgPasswordMismatch)
	}

	return ValidatePassword(password)
}
