// Copyright 2025 Radja Thaher
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth resolves the bearer credential and assembles the fixed
// per-call headers for the Google Ads API. Either a static access token or
// an OAuth refresh triple must be configured; refresh-based tokens are
// cached and re-exchanged near expiry.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/grpc/metadata"
)

const (
	// googleTokenURL is the OAuth token endpoint used for the
	// refresh-token grant. Overridable via Config.TokenURL in tests.
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// expiryMargin re-exchanges a cached token this long before it
	// actually expires, so an in-flight call never races expiry.
	expiryMargin = 30 * time.Second
)

// Config holds the credential material and fixed header values. All fields
// come from flags, environment, or the config file; nothing is persisted.
type Config struct {
	DeveloperToken  string
	AccessToken     string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	LoginCustomerID string
	TokenURL        string
}

// Manager owns the mutable cached token. It is the only component that
// mutates credential state; access is serialized by the underlying
// oauth2.ReuseTokenSource so concurrent callers never race a refresh.
type Manager struct {
	cfg Config
	ts  oauth2.TokenSource
}

// NewManager validates the configuration and prepares the token source.
// Validation failures are configuration errors: they name the missing
// variable and happen before any network call.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.DeveloperToken) == "" {
		return nil, fmt.Errorf("GOOGLE_ADS_DEVELOPER_TOKEN missing")
	}

	m := &Manager{cfg: cfg}
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		// Static tokens pass through unchanged; rotation is the
		// caller's responsibility and expiry surfaces as the remote
		// Unauthenticated status.
		m.ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		return m, nil
	}

	switch {
	case cfg.ClientID == "":
		return nil, fmt.Errorf("GOOGLE_ADS_CLIENT_ID missing (no access token configured)")
	case cfg.ClientSecret == "":
		return nil, fmt.Errorf("GOOGLE_ADS_CLIENT_SECRET missing (no access token configured)")
	case cfg.RefreshToken == "":
		return nil, fmt.Errorf("GOOGLE_ADS_REFRESH_TOKEN missing (no access token configured)")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	base := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	m.ts = oauth2.ReuseTokenSourceWithExpiry(nil, base, expiryMargin)
	return m, nil
}

// Token returns a valid access token, exchanging the refresh token when the
// cached one is absent or near expiry.
func (m *Manager) Token() (string, error) {
	tok, err := m.ts.Token()
	if err != nil {
		return "", fmt.Errorf("resolve access token: %w", err)
	}
	return tok.AccessToken, nil
}

// TokenSource exposes the cached source for transport integration.
func (m *Manager) TokenSource() oauth2.TokenSource { return m.ts }

// CallHeaders assembles the fixed per-call metadata: the developer token
// always, login-customer-id when configured, and customer-id when provided.
// These ride outside the message body on every outgoing call.
func (m *Manager) CallHeaders(customerID string) metadata.MD {
	md := metadata.Pairs("developer-token", m.cfg.DeveloperToken)
	if m.cfg.LoginCustomerID != "" {
		md.Set("login-customer-id", m.cfg.LoginCustomerID)
	}
	if customerID != "" {
		md.Set("customer-id", customerID)
	}
	return md
}

// NormalizeCustomerID strips every non-digit, accepting the dashed form
// customers commonly paste (123-456-7890).
func NormalizeCustomerID(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
