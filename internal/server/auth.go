package server

import (
	"net/http"
	"strconv"
	"strings"
)

// Authorizer gates the convert endpoint.
type Authorizer interface {
	// CanManage reports whether the caller may run conversions at all.
	CanManage(r *http.Request) bool

	// CanEdit reports whether the caller may modify postID.
	CanEdit(r *http.Request, postID int) bool
}

// AnyPost grants edit access to every post.
const AnyPost = "*"

// TokenAuthorizer authorizes bearer tokens. Each token maps to the post ids
// it may edit; AnyPost grants all of them. A known token may always
// convert.
type TokenAuthorizer struct {
	grants map[string]map[string]bool
}

// NewTokenAuthorizer builds an authorizer from token -> post id grants.
func NewTokenAuthorizer(editors map[string][]string) *TokenAuthorizer {
	a := &TokenAuthorizer{grants: make(map[string]map[string]bool, len(editors))}
	for token, posts := range editors {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		set := make(map[string]bool, len(posts))
		for _, p := range posts {
			set[strings.TrimSpace(p)] = true
		}
		a.grants[token] = set
	}
	return a
}

// Len returns the number of configured tokens.
func (a *TokenAuthorizer) Len() int {
	return len(a.grants)
}

// CanManage reports whether the request carries a known token.
func (a *TokenAuthorizer) CanManage(r *http.Request) bool {
	_, ok := a.grants[bearerToken(r)]
	return ok
}

// CanEdit reports whether the request's token was granted postID.
func (a *TokenAuthorizer) CanEdit(r *http.Request, postID int) bool {
	set, ok := a.grants[bearerToken(r)]
	if !ok {
		return false
	}
	return set[AnyPost] || set[strconv.Itoa(postID)]
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// AllowAll authorizes every request.
type AllowAll struct{}

func (AllowAll) CanManage(*http.Request) bool { return true }

func (AllowAll) CanEdit(*http.Request, int) bool { return true }
