package domain

import (
	"encoding/json"
	"fmt"
)

// DefaultAccount is the .edgerc section used when a request names no account.
const DefaultAccount = "default"

// Credentials is one EdgeGrid credential set parsed from an .edgerc section.
// AccountKey is the optional account switch key appended to API requests.
type Credentials struct {
	Host         string
	ClientToken  string
	ClientSecret string
	AccessToken  string
	AccountKey   string
}

// String masks the secret material so a formatted credential set never
// leaks into logs. The host stays visible for troubleshooting.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Host:%s ClientToken:%s ClientSecret:%s AccessToken:%s AccountKey:%s}",
		c.Host, mask(c.ClientToken), mask(c.ClientSecret), mask(c.AccessToken), c.AccountKey)
}

// MarshalJSON applies the same masking to JSON renderings.
func (c Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"host":          c.Host,
		"client_token":  mask(c.ClientToken),
		"client_secret": mask(c.ClientSecret),
		"access_token":  mask(c.AccessToken),
		"account_key":   c.AccountKey,
	})
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "***"
}

// MissingKeys lists the required .edgerc keys absent from this set.
func (c Credentials) MissingKeys() []string {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.ClientToken == "" {
		missing = append(missing, "client_token")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	return missing
}

func (c Credentials) Complete() bool {
	return len(c.MissingKeys()) == 0
}
