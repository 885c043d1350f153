// Package gate decides, per request, whether a path may be served given the
// caller's session token.
package gate

import (
	"strings"

	jwtinfra "github.com/go-auth-gate/internal/infrastructure/jwt"
)

type Decision int

const (
	Allow Decision = iota
	RedirectHome
	RedirectSignIn
)

func (d Decision) String() string {
	switch d {
	case RedirectHome:
		return "redirect_home"
	case RedirectSignIn:
		return "redirect_signin"
	default:
		return "allow"
	}
}

// Verifier checks a raw session token; nil means unauthenticated.
type Verifier interface {
	Verify(token string) *jwtinfra.Claims
}

type Config struct {
	PublicPaths    []string // exact match, e.g. "/"
	ProtectedPaths []string // prefix match on path segments, e.g. "/dashboard"
	HomePath       string
	SignInPath     string
}

// Gate never touches the identity store: the decision rests on the token's
// signature and expiry alone.
type Gate struct {
	sessions  Verifier
	public    map[string]struct{}
	protected []string
	home      string
	signIn    string
}

func New(sessions Verifier, cfg Config) *Gate {
	g := &Gate{
		sessions: sessions,
		public:   make(map[string]struct{}, len(cfg.PublicPaths)),
		home:     cfg.HomePath,
		signIn:   cfg.SignInPath,
	}
	if g.home == "" {
		g.home = "/dashboard"
	}
	if g.signIn == "" {
		g.signIn = "/"
	}
	for _, p := range cfg.PublicPaths {
		g.public[p] = struct{}{}
	}
	for _, p := range cfg.ProtectedPaths {
		if p = strings.TrimRight(p, "/"); p != "" {
			g.protected = append(g.protected, p)
		}
	}
	return g
}

func (g *Gate) HomePath() string   { return g.home }
func (g *Gate) SignInPath() string { return g.signIn }

// Decide returns the decision for path and the verified claims, if any.
// Paths that are neither public nor protected are allowed.
func (g *Gate) Decide(path, token string) (Decision, *jwtinfra.Claims) {
	public := g.isPublic(path)
	protected := !public && g.isProtected(path)
	if !public && !protected {
		return Allow, nil
	}
	claims := g.sessions.Verify(token)
	switch {
	case public && claims != nil:
		return RedirectHome, claims
	case protected && claims == nil:
		return RedirectSignIn, nil
	}
	return Allow, claims
}

// Matched reports whether path is public or protected. Decide always allows
// unmatched paths.
func (g *Gate) Matched(path string) bool {
	return g.isPublic(path) || g.isProtected(path)
}

func (g *Gate) isPublic(path string) bool {
	_, ok := g.public[path]
	return ok
}

func (g *Gate) isProtected(path string) bool {
	for _, p := range g.protected {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
