package resend

// Config represents the configuration for the Resend client
type Config struct {
	// APIKey is sent as a bearer token
	APIKey string

	// BaseURL is the Resend API base URL
	BaseURL string

	// From is the default sender, e.g. "Shop <no-reply@example.com>"
	From string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" || c.BaseURL == "" || c.From == "" {
		return ErrInvalidConfig
	}
	return nil
}
