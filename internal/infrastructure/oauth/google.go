package oauth

import (
	"context"
	"fmt"

	"github.com/go-auth-gate/internal/config"
	"github.com/go-auth-gate/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// IDTokenValidator checks a Google ID token's signature and audience.
type IDTokenValidator interface {
	Verify(ctx context.Context, token string) (*domain.GoogleProfile, error)
}

// Google reads the profile from the OIDC id_token returned with the access token.
type Google struct {
	config    *oauth2.Config
	validator IDTokenValidator
}

func NewGoogle(reg config.OAuthProvider, v IDTokenValidator) *Google {
	return &Google{
		config:    oauthConfig(reg, endpoints.Google, "openid", "email", "profile"),
		validator: v,
	}
}

func (g *Google) Provider() domain.Provider { return domain.ProviderGoogle }

func (g *Google) AuthCodeURL(state, verifier string) string {
	return authCodeURL(g.config, state, verifier)
}

func (g *Google) Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error) {
	tok, err := exchange(ctx, g.config, code, verifier)
	if err != nil {
		return nil, err
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("token response without id_token: %w", domain.ErrUpstreamProvider)
	}
	p, err := g.validator.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return *p, nil
}
