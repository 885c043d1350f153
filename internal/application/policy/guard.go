// Package policy decides which email addresses may sign in.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-auth-gate/internal/domain"
	"github.com/go-auth-gate/internal/pkg/id"
)

// PatternSource yields the current allow-list. It is consulted on every check.
type PatternSource interface {
	ListAllowedPatterns(ctx context.Context) ([]string, error)
}

// StaticSource serves a fixed pattern list, typically ALLOWED_EMAIL_PATTERNS.
type StaticSource []string

func (s StaticSource) ListAllowedPatterns(context.Context) ([]string, error) {
	return s, nil
}

// Guard matches emails against the allow-list. An empty list allows nothing.
type Guard struct {
	source PatternSource
}

func NewGuard(source PatternSource) *Guard {
	return &Guard{source: source}
}

// IsAllowed matches the address against the current patterns, ignoring case.
func (g *Guard) IsAllowed(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	patterns, err := g.source.ListAllowedPatterns(ctx)
	if err != nil {
		return false, fmt.Errorf("load allowed patterns: %w", err)
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			slog.Warn("skipping invalid allowed-email pattern", "pattern", p, "err", err)
			continue
		}
		if re.MatchString(email) {
			return true, nil
		}
	}
	return false, nil
}

type patternStore interface {
	PatternSource
	AddAllowedPattern(ctx context.Context, p *domain.AllowedEmailPattern) error
}

// Seed adds every pattern not already present in the store.
func Seed(ctx context.Context, store patternStore, patterns []string) error {
	existing, err := store.ListAllowedPatterns(ctx)
	if err != nil {
		return fmt.Errorf("list allowed patterns: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		have[p] = struct{}{}
	}
	for _, p := range patterns {
		if _, ok := have[p]; ok {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("seed pattern %q: %w", p, err)
		}
		if err := store.AddAllowedPattern(ctx, &domain.AllowedEmailPattern{PatternID: id.New(), Pattern: p}); err != nil {
			return err
		}
		have[p] = struct{}{}
		slog.Info("seeded allowed-email pattern", "pattern", p)
	}
	return nil
}
