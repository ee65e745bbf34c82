package authbridge_test

import (
	"testing"

	authbridge "github.com/goliatone/go-authbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidateRequiresIdentityFields(t *testing.T) {
	err := authbridge.Config{}.Validate()
	require.Error(t, err)

	err = authbridge.Config{APIKey: "k", AppID: "a", ProjectID: "p"}.Validate()
	assert.NoError(t, err)
}

func TestConfigValidateRejectsBadAuthDomain(t *testing.T) {
	cfg := authbridge.Config{
		APIKey:     "k",
		AppID:      "a",
		ProjectID:  "p",
		AuthDomain: "not a host",
	}
	assert.Error(t, cfg.Validate())
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	_, err := authbridge.NewApp(authbridge.Config{AppID: "a"})
	assert.Error(t, err)
}
