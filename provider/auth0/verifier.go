package auth0

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	authbridge "github.com/goliatone/go-authbridge"
	goerrors "github.com/goliatone/go-errors"
)

// profileClaims captures the OIDC profile claims Auth0 embeds in ID tokens.
type profileClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
	Picture       string `json:"picture"`
	PhoneNumber   string `json:"phone_number"`
}

// Validate satisfies validator.CustomClaims.
func (c *profileClaims) Validate(ctx context.Context) error {
	return nil
}

// UnmarshalJSON tolerates tokens that carry none of the profile claims.
func (c *profileClaims) UnmarshalJSON(data []byte) error {
	type alias profileClaims
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = profileClaims(decoded)
	return nil
}

// tokenVerifier validates Auth0-issued ID tokens against the tenant JWKS
// and projects their claims into the bridge's user shape.
type tokenVerifier struct {
	validator *validator.Validator
}

func newTokenVerifier(cfg Config) (*tokenVerifier, error) {
	issuer := cfg.issuerURL()
	if issuer == "" {
		return nil, goerrors.New("auth0: issuer or domain is required", goerrors.CategoryBadInput)
	}

	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "auth0: invalid issuer URL")
	}
	if issuerURL.Scheme == "" || issuerURL.Host == "" {
		return nil, goerrors.New("auth0: invalid issuer URL: "+issuer, goerrors.CategoryBadInput)
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	provider := jwks.NewCachingProvider(issuerURL, cacheTTL)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		cfg.audiences(),
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &profileClaims{}
		}),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "auth0: failed to create validator")
	}

	return &tokenVerifier{validator: jwtValidator}, nil
}

// verify validates tokenString and returns the user it describes. The
// returned RawUser has no token material attached; the caller owns that.
func (v *tokenVerifier) verify(ctx context.Context, tokenString string) (*authbridge.RawUser, error) {
	token, err := v.validator.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, normalizeVerifyError(err)
	}

	validated, ok := token.(*validator.ValidatedClaims)
	if !ok || validated == nil {
		return nil, ErrTokenInvalid
	}

	profile, ok := validated.CustomClaims.(*profileClaims)
	if !ok || profile == nil {
		profile = &profileClaims{}
	}

	raw := &authbridge.RawUser{
		UID:           validated.RegisteredClaims.Subject,
		DisplayName:   profile.Name,
		Email:         profile.Email,
		EmailVerified: profile.EmailVerified,
		PhoneNumber:   profile.PhoneNumber,
		PhotoURL:      profile.Picture,
	}
	if raw.DisplayName == "" {
		raw.DisplayName = profile.Nickname
	}

	if raw.Email != "" {
		raw.ProviderData = append(raw.ProviderData, authbridge.RawProviderInfo{
			ProviderID: authbridge.ProviderIDPassword,
			UID:        raw.Email,
			Email:      raw.Email,
		})
	}
	if raw.PhoneNumber != "" {
		raw.ProviderData = append(raw.ProviderData, authbridge.RawProviderInfo{
			ProviderID:  authbridge.ProviderIDPhone,
			UID:         raw.PhoneNumber,
			PhoneNumber: raw.PhoneNumber,
		})
	}

	return raw, nil
}

func normalizeVerifyError(err error) error {
	if err == nil {
		return nil
	}

	clone := ErrTokenInvalid.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = ErrTokenExpired.Clone()
	}

	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "auth0",
		"cause":    err.Error(),
	})
}
