package cannedreports

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultKeyID is used when a token header carries no "kid".
const DefaultKeyID = "default"

const bearerPrefix = "Bearer "

// KeyStore looks up the HMAC secret for a key id.
type KeyStore interface {
	Lookup(keyID string) ([]byte, error)
}

// RoleSet is a set of role claims.
type RoleSet map[string]struct{}

// NewRoleSet builds a set from roles, dropping blanks.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r != "" {
			set[r] = struct{}{}
		}
	}
	return set
}

func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the set holds at least one of roles.
func (s RoleSet) HasAny(roles ...string) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Sorted returns the roles in lexical order.
func (s RoleSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// RoleExtractor reads the "role" claim of a bearer token.
//
// With a KeyStore the token signature is verified (HMAC, key chosen by the
// "kid" header) and expiry is enforced. Without one the token is only
// decoded; signature checking is then left to whatever sits in front of the
// service.
type RoleExtractor struct {
	keys   KeyStore
	parser *jwt.Parser
}

// NewRoleExtractor returns an extractor. keys may be nil.
func NewRoleExtractor(keys KeyStore) *RoleExtractor {
	return &RoleExtractor{
		keys:   keys,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})),
	}
}

type roleClaims struct {
	jwt.RegisteredClaims
	Role any `json:"role"`
}

// ExtractRoles returns the roles carried by credential. An empty credential
// yields an empty set. A malformed token is an InvalidRequest error.
func (e *RoleExtractor) ExtractRoles(credential string) (RoleSet, error) {
	token := strings.TrimSpace(credential)
	token = strings.TrimPrefix(token, bearerPrefix)
	token = strings.TrimSpace(token)
	if token == "" {
		return RoleSet{}, nil
	}

	claims := &roleClaims{}
	var err error
	if e == nil || e.keys == nil {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	} else {
		_, err = e.parser.ParseWithClaims(token, claims, e.keyFunc)
	}
	if err != nil {
		return nil, invalidCredential(err)
	}

	roles, err := normalizeRoles(claims.Role)
	if err != nil {
		return nil, invalidCredential(err)
	}
	return roles, nil
}

func (e *RoleExtractor) keyFunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		kid = DefaultKeyID
	}
	secret, err := e.keys.Lookup(kid)
	if err != nil {
		return nil, fmt.Errorf("lookup key %q: %w", kid, err)
	}
	return secret, nil
}

func normalizeRoles(claim any) (RoleSet, error) {
	switch v := claim.(type) {
	case nil:
		return RoleSet{}, nil
	case string:
		return NewRoleSet(strings.Split(v, ",")...), nil
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("role claim holds a %T", item)
			}
			roles = append(roles, s)
		}
		return NewRoleSet(roles...), nil
	default:
		return nil, fmt.Errorf("role claim is a %T", claim)
	}
}

func invalidCredential(err error) *Error {
	msg := "authorization token is malformed"
	if errors.Is(err, jwt.ErrTokenExpired) {
		msg = "authorization token has expired"
	} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		msg = "authorization token signature is invalid"
	}
	return &Error{Kind: KindInvalidRequest, Op: "extract roles", Message: msg, Err: err}
}
