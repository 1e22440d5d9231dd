package domain

import (
	"math/big"

	dErrors "memberd/pkg/domainerrors"
)

// MemberNumber is the unique public identifier assigned to a member within
// its membership type's numbering namespace. Stored as a digit string;
// ordering is always numeric, never lexicographic ("9" < "10").
type MemberNumber string

// ParseMemberNumber validates that s is a non-empty string of digits.
func ParseMemberNumber(s string) (MemberNumber, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "member number is required")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "member number must contain only digits")
		}
	}
	return MemberNumber(s), nil
}

func (n MemberNumber) String() string { return string(n) }

func (n MemberNumber) value() *big.Int {
	v, ok := new(big.Int).SetString(string(n), 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// Cmp compares two member numbers numerically. Returns -1, 0 or +1.
func (n MemberNumber) Cmp(other MemberNumber) int {
	return n.value().Cmp(other.value())
}

// Next returns the numerically next member number. Arbitrary precision, so
// prefixes wider than an int64 are safe.
func (n MemberNumber) Next() MemberNumber {
	v := n.value()
	v.Add(v, big.NewInt(1))
	return MemberNumber(v.String())
}
