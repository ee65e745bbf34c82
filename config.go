package authbridge

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Config identifies one application identity. Apps constructed from configs
// with different AppID/TenantID pairs are fully independent: they share no
// dispatchers, holders, or listeners.
type Config struct {
	APIKey     string
	AppID      string
	ProjectID  string
	AuthDomain string
	TenantID   string
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.AppID, validation.Required),
		validation.Field(&c.ProjectID, validation.Required),
		validation.Field(&c.AuthDomain, is.Host),
	)
}

// identity partitions event scopes by application identity.
func (c Config) identity() string {
	if c.TenantID == "" {
		return c.AppID
	}
	return c.AppID + "/" + c.TenantID
}
