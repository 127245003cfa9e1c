package remote

import (
	"net/url"
	"strings"
)

// mask replaces the input string with the same number of `X` characters.
func mask(s string) string {
	return strings.Repeat("X", len(s))
}

// redact returns u as a string with its password masked, for logging.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	pw, ok := u.User.Password()
	if !ok {
		return u.String()
	}
	c := *u
	c.User = url.UserPassword(u.User.Username(), mask(pw))
	return c.String()
}
