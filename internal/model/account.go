package model

import "regexp"

const (
	minAccountLen = 2
	maxAccountLen = 64
)

var (
	accountPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)
	segmentPattern = regexp.MustCompile(`^([a-z\d]+[\-_])*[a-z\d]+$`)
)

// AccountID is an opaque account identity understood by the execution
// environment: dot-separated segments of lowercase alphanumerics joined by
// single '-' or '_' characters.
type AccountID string

// Validate reports whether id is a well-formed account.
func (id AccountID) Validate() error {
	s := string(id)
	if len(s) < minAccountLen || len(s) > maxAccountLen {
		return invalidf("account %q must be between %d and %d characters", s, minAccountLen, maxAccountLen)
	}
	if !accountPattern.MatchString(s) {
		return invalidf("account %q is not a valid account name", s)
	}
	return nil
}

// SubAccount returns the account name under id, e.g. "party" under
// "events.near" becomes "party.events.near". name must already be a bare
// segment; surrounding whitespace is rejected rather than trimmed.
func (id AccountID) SubAccount(name string) (AccountID, error) {
	if !segmentPattern.MatchString(name) {
		return "", invalidf("name %q must be lowercase alphanumerics separated by '-' or '_'", name)
	}
	sub := AccountID(name + "." + string(id))
	if err := sub.Validate(); err != nil {
		return "", err
	}
	return sub, nil
}
