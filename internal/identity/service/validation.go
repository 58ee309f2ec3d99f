package service

import (
	"referral-network-hub/backend/internal/user/domain"
)

func validateEmail(email string) error {
	if email == "" || !domain.ValidEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return weakPassword("password must be at least 12 characters")
	}
	if len(password) > 72 {
		return weakPassword("password must be at most 72 bytes")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return weakPassword("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return weakPassword("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return weakPassword("password must contain at least one number")
	}
	if !hasSymbol {
		return weakPassword("password must contain at least one symbol")
	}
	return nil
}

// checkEligible is the login-eligibility gate shared by login and rotation.
func checkEligible(u *domain.User, requireVerified bool) error {
	switch {
	case !u.IsActive:
		return ErrAccountInactive
	case u.IsBlocked:
		return ErrAccountBlocked
	case requireVerified && !u.EmailVerified:
		return ErrEmailUnverified
	}
	return nil
}
