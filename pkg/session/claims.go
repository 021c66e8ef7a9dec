package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Legacy enterprise claim URIs issued by the Byway API alongside the plain keys.
const (
	ClaimRoleMicrosoft  = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	ClaimRoleSOAP       = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/role"
	ClaimName           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	ClaimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	ClaimGivenName      = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"
	ClaimEmailAddress   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
)

const adminRole = "admin"

// DecodeError reports a token that is not a three-segment JWT with a JSON object payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode token: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Claims is the normalized view of a decoded token payload.
type Claims struct {
	SubjectID string
	Name      string
	Email     string
	Roles     []string
	// ExpiresAt is the exp claim in epoch seconds; zero when HasExpiry is false.
	ExpiresAt float64
	HasExpiry bool
	Raw       map[string]any
}

// Expiry returns exp as a time, or the zero time when absent.
func (c Claims) Expiry() time.Time {
	if !c.HasExpiry {
		return time.Time{}
	}
	sec, frac := math.Modf(c.ExpiresAt)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// ExpiredAt reports whether the claims are expired at now. Missing exp counts as expired.
func (c Claims) ExpiredAt(now time.Time) bool {
	if !c.HasExpiry {
		return true
	}
	return !(c.ExpiresAt*1000 > float64(now.UnixMilli()))
}

// HasRole reports a case-insensitive role match.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role claim carries the admin marker.
func (c Claims) IsAdmin() bool {
	return c.HasRole(adminRole)
}

// Decode parses the payload segment of token. The signature is not verified:
// the issuing API is the trust boundary, this package only reads claims.
func Decode(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, mc)
	if err != nil {
		// An unknown or missing alg still leaves a readable payload.
		if !errors.Is(err, jwt.ErrTokenUnverifiable) || errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, &DecodeError{Err: err}
		}
	}

	c := Claims{
		SubjectID: firstString(mc, subjectResolvers),
		Name:      firstString(mc, nameResolvers),
		Email:     firstString(mc, emailResolvers),
		Roles:     resolve(mc, roleResolvers),
		Raw:       map[string]any(mc),
	}
	c.ExpiresAt, c.HasExpiry = numericClaim(mc, "exp")
	return c, nil
}

// claimResolver extracts a value from one claim location; ok is false when the
// location is absent or empty so the next resolver is tried.
type claimResolver func(jwt.MapClaims) (values []string, ok bool)

var (
	roleResolvers = []claimResolver{
		claimKey(ClaimRoleMicrosoft),
		claimKey(ClaimRoleSOAP),
		claimKey("role"),
		claimKey("roles"),
	}
	subjectResolvers = []claimResolver{
		claimKey(ClaimNameIdentifier),
		claimKey("sub"),
	}
	nameResolvers = []claimResolver{
		claimKey(ClaimName),
		claimKey(ClaimNameIdentifier),
		claimKey(ClaimGivenName),
		claimKey("name"),
	}
	emailResolvers = []claimResolver{
		claimKey(ClaimEmailAddress),
		claimKey("email"),
	}
)

func claimKey(key string) claimResolver {
	return func(mc jwt.MapClaims) ([]string, bool) {
		v, ok := mc[key]
		if !ok {
			return nil, false
		}
		vals := stringValues(v)
		return vals, len(vals) > 0
	}
}

func resolve(mc jwt.MapClaims, resolvers []claimResolver) []string {
	for _, r := range resolvers {
		if vals, ok := r(mc); ok {
			return vals
		}
	}
	return nil
}

func firstString(mc jwt.MapClaims, resolvers []claimResolver) string {
	vals := resolve(mc, resolvers)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// stringValues treats v as a single string or a list of strings. Non-string
// scalars are stringified; empty strings and nested objects are dropped.
func stringValues(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := scalarString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, bool, json.Number:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

func numericClaim(mc jwt.MapClaims, key string) (float64, bool) {
	switch v := mc[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
