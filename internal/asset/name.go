package asset

import (
	"fmt"
	"regexp"
	"strings"
)

// Name identifies a principal: an account that can hold authority and balances.
// Names are 1-12 characters from [a-z1-5.] and never end with a dot.
type Name string

var nameRe = regexp.MustCompile(`^[a-z1-5.]{1,12}$`)

// ParseName validates s as an account name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return n, nil
}

// IsValid reports whether n is a well-formed account name.
func (n Name) IsValid() bool {
	return nameRe.MatchString(string(n)) && !strings.HasSuffix(string(n), ".")
}

func (n Name) String() string {
	return string(n)
}
