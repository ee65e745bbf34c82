package authbridge

// Provider identifiers for the credential builders.
const (
	ProviderIDPassword  = "password"
	ProviderIDPhone     = "phone"
	ProviderIDCustom    = "custom"
	ProviderIDAnonymous = "anonymous"
)

// EmailCredential builds a password credential.
func EmailCredential(email, password string) Credential {
	return Credential{
		ProviderID: ProviderIDPassword,
		Token:      email,
		Secret:     password,
	}
}

// PhoneCredential builds a credential from a verification request key and a
// user-entered code. This is the manual path after an auto-retrieval
// timeout: signing in with it completes a flow the coordinator already
// stopped tracking.
func PhoneCredential(requestKey, code string) Credential {
	return Credential{
		ProviderID: ProviderIDPhone,
		Token:      requestKey,
		Secret:     code,
	}
}

// OAuthCredential builds a credential for an OAuth provider.
func OAuthCredential(providerID, accessToken, secret string) Credential {
	return Credential{
		ProviderID: providerID,
		Token:      accessToken,
		Secret:     secret,
	}
}

// CustomTokenCredential builds a credential from a backend-issued token.
func CustomTokenCredential(token string) Credential {
	return Credential{
		ProviderID: ProviderIDCustom,
		Token:      token,
	}
}
