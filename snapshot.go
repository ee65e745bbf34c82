package authbridge

import (
	"github.com/golang-jwt/jwt/v5"
)

// RawProviderInfo is provider-linkage metadata as delivered by the provider.
type RawProviderInfo struct {
	ProviderID  string `json:"providerId"`
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// RawUser is the opaque user payload produced by the identity provider, both
// in operation results and in external state notifications. A nil *RawUser
// means "no user".
type RawUser struct {
	UID           string            `json:"uid"`
	DisplayName   string            `json:"displayName,omitempty"`
	Email         string            `json:"email,omitempty"`
	EmailVerified bool              `json:"emailVerified,omitempty"`
	PhoneNumber   string            `json:"phoneNumber,omitempty"`
	PhotoURL      string            `json:"photoUrl,omitempty"`
	Anonymous     bool              `json:"isAnonymous,omitempty"`
	ProviderData  []RawProviderInfo `json:"providerData,omitempty"`
	IDToken       string            `json:"idToken,omitempty"`
	RefreshToken  string            `json:"refreshToken,omitempty"`
}

// RawUserCredential is the richer payload returned by sign-in and sign-up
// operations: the user plus provider-specific additional information.
type RawUserCredential struct {
	User       *RawUser       `json:"user"`
	ProviderID string         `json:"providerId,omitempty"`
	IsNewUser  bool           `json:"isNewUser,omitempty"`
	Username   string         `json:"username,omitempty"`
	Profile    map[string]any `json:"profile,omitempty"`
}

// ProviderInfo is the snapshot form of one linked provider.
type ProviderInfo struct {
	ProviderID  string
	UID         string
	DisplayName string
	Email       string
	PhoneNumber string
	PhotoURL    string
}

// Snapshot is the immutable representation of the current authenticated
// identity. It is replaced wholesale on every authoritative update and never
// mutated in place; a nil *Snapshot means "no user".
type Snapshot struct {
	UID           string
	DisplayName   string
	Email         string
	EmailVerified bool
	PhoneNumber   string
	PhotoURL      string
	Anonymous     bool
	ProviderData  []ProviderInfo

	idToken      string
	refreshToken string
}

// IDToken returns the last known ID token for this snapshot. Use
// Client.IDToken to force a refresh through the provider.
func (s *Snapshot) IDToken() string {
	if s == nil {
		return ""
	}
	return s.idToken
}

// RefreshToken returns the snapshot's refresh token, if the provider issued one.
func (s *Snapshot) RefreshToken() string {
	if s == nil {
		return ""
	}
	return s.refreshToken
}

// IDTokenClaims decodes the claims of the snapshot's ID token without
// verifying its signature. Verification is the provider's concern.
func (s *Snapshot) IDTokenClaims() (jwt.MapClaims, error) {
	if s == nil || s.idToken == "" {
		return nil, ErrNoCurrentUser
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.idToken, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// AdditionalUserInfo carries provider-specific sign-in metadata.
type AdditionalUserInfo struct {
	ProviderID string
	IsNewUser  bool
	Username   string
	Profile    map[string]any
}

// UserCredential is the adapted form of a sign-in/sign-up result.
type UserCredential struct {
	User           *Snapshot
	AdditionalInfo *AdditionalUserInfo
}

// AdaptUser maps a raw provider user into the snapshot form. It is pure and
// total: nil in, nil out. Every snapshot in the bridge is produced here, no
// matter whether the raw payload arrived from an external notification or a
// direct operation.
func AdaptUser(raw *RawUser) *Snapshot {
	if raw == nil {
		return nil
	}

	snap := &Snapshot{
		UID:           raw.UID,
		DisplayName:   raw.DisplayName,
		Email:         raw.Email,
		EmailVerified: raw.EmailVerified,
		PhoneNumber:   raw.PhoneNumber,
		PhotoURL:      raw.PhotoURL,
		Anonymous:     raw.Anonymous,
		idToken:       raw.IDToken,
		refreshToken:  raw.RefreshToken,
	}

	if len(raw.ProviderData) > 0 {
		snap.ProviderData = make([]ProviderInfo, len(raw.ProviderData))
		for i, p := range raw.ProviderData {
			snap.ProviderData[i] = ProviderInfo{
				ProviderID:  p.ProviderID,
				UID:         p.UID,
				DisplayName: p.DisplayName,
				Email:       p.Email,
				PhoneNumber: p.PhoneNumber,
				PhotoURL:    p.PhotoURL,
			}
		}
	}

	return snap
}

// AdaptUserCredential maps a raw credential payload into its adapted form.
func AdaptUserCredential(raw *RawUserCredential) *UserCredential {
	if raw == nil {
		return nil
	}

	return &UserCredential{
		User: AdaptUser(raw.User),
		AdditionalInfo: &AdditionalUserInfo{
			ProviderID: raw.ProviderID,
			IsNewUser:  raw.IsNewUser,
			Username:   raw.Username,
			Profile:    raw.Profile,
		},
	}
}
