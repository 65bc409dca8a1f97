package password

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SpecialCharacters is the set accepted by the special-character rule.
const SpecialCharacters = "!@#$%^&*(),.?\"':{}|<>_-[]\\/~`+=;"

// Policy is the registration strength policy. Every enabled rule is evaluated; Check
// never stops at the first failure.
type Policy struct {
	MinLength               int
	RequireUppercase        bool
	RequireLowercase        bool
	RequireDigit            bool
	RequireSpecialCharacter bool
}

// DefaultPolicy requires ten characters with an uppercase letter, a lowercase letter,
// a digit and a special character.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:               10,
		RequireUppercase:        true,
		RequireLowercase:        true,
		RequireDigit:            true,
		RequireSpecialCharacter: true,
	}
}

// Check returns one reason per violated rule, in a stable order. A nil result means
// the candidate satisfies the policy.
func (p Policy) Check(candidate string) []string {
	var reasons []string

	if utf8.RuneCountInString(candidate) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if p.RequireUppercase && !strings.ContainsFunc(candidate, isASCIIUpper) {
		reasons = append(reasons, "one uppercase letter")
	}
	if p.RequireLowercase && !strings.ContainsFunc(candidate, isASCIILower) {
		reasons = append(reasons, "one lowercase letter")
	}
	if p.RequireDigit && !strings.ContainsFunc(candidate, isASCIIDigit) {
		reasons = append(reasons, "one digit")
	}
	if p.RequireSpecialCharacter && !strings.ContainsAny(candidate, SpecialCharacters) {
		reasons = append(reasons, "one special character (!@#$%^&*...)")
	}

	return reasons
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }
