package remote

import (
	"strings"
)

// Scheme define the authentication method.
type Scheme int

const (
	// SchemeUnknown represents unknown or unsupported schemes.
	SchemeUnknown Scheme = iota
	// SchemeBasic represents the "Basic" HTTP authentication scheme.
	SchemeBasic
	// SchemeBearer represents the Bearer token in OAuth 2.0.
	SchemeBearer
)

// String returns the string for the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeBasic:
		return "Basic"
	case SchemeBearer:
		return "Bearer"
	default:
		return "Unknown"
	}
}

// Challenge is a parsed WWW-Authenticate response header.
type Challenge struct {
	// Scheme is the auth-scheme announced by the server.
	Scheme Scheme
	// Parameters are the auth-params, e.g. realm, service and scope for the
	// distribution token flow.
	Parameters map[string]string
}

// ParseChallenge parses the WWW-Authenticate header value into a Challenge.
// Values may be quoted, and quoted values may contain commas, e.g.
// scope="repository:library/hello-world:pull,push".
func ParseChallenge(header string) Challenge {
	var challenge Challenge

	schemeStr, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	switch {
	case strings.EqualFold(schemeStr, "basic"):
		challenge.Scheme = SchemeBasic
	case strings.EqualFold(schemeStr, "bearer"):
		challenge.Scheme = SchemeBearer
	default:
		return Challenge{Scheme: SchemeUnknown}
	}

	for {
		key, value, ok := nextAuthParam(&rest)
		if !ok {
			break
		}
		if challenge.Parameters == nil {
			challenge.Parameters = map[string]string{}
		}
		challenge.Parameters[key] = value
	}
	return challenge
}

// nextAuthParam consumes one key=value pair from *s, honoring quoted values.
func nextAuthParam(s *string) (key, value string, ok bool) {
	rest := strings.TrimLeft(*s, " ,")
	i := strings.Index(rest, "=")
	if i < 0 {
		*s = ""
		return "", "", false
	}
	key = strings.TrimSpace(rest[:i])
	rest = strings.TrimLeft(rest[i+1:], " ")

	if strings.HasPrefix(rest, `"`) {
		rest = rest[1:]
		j := strings.Index(rest, `"`)
		if j < 0 {
			*s = ""
			return "", "", false
		}
		value, rest = rest[:j], rest[j+1:]
	} else {
		j := strings.IndexAny(rest, ", ")
		if j < 0 {
			j = len(rest)
		}
		value, rest = rest[:j], rest[j:]
	}
	*s = rest
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
