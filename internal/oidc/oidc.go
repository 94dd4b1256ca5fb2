package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/b2cuseradmin/useradmin/pkg/middleware"
	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier checks bearer tokens issued by the configured OIDC provider.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and verifies tokens for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

// IssuerURL builds the issuer from a base URL and optional Keycloak-style realm.
func IssuerURL(base, realm string) string {
	base = strings.TrimRight(base, "/")
	if realm == "" {
		return base
	}
	return base + "/realms/" + realm
}
