package security

import "regexp"

// DefaultPasswordMinLength is the minimum accepted password length.
const DefaultPasswordMinLength = 8

// phonePattern accepts international-format numbers: a leading plus or
// digit followed by at least ten digits, spaces, dashes or parentheses.
var phonePattern = regexp.MustCompile(`^[\+\d][\d\s\-\(\)]{10,}$`)

// ValidPhoneNumber reports whether phone looks like a usable number.
func ValidPhoneNumber(phone string) bool {
	return phone != "" && phonePattern.MatchString(phone)
}

// ValidPassword reports whether password meets the minimum length policy.
func ValidPassword(password string, minLength int) bool {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	return len(password) >= minLength
}

// SanitizePhone strips everything except digits and a plus sign.
func SanitizePhone(phone string) string {
	out := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if c == '+' || (c >= '0' && c <= '9') {
			out = append(out, c)
		}
	}
	return string(out)
}
