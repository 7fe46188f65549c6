package twilio

// Config represents the configuration for the Twilio client
type Config struct {
	AccountSID string
	AuthToken  string

	// BaseURL is the Twilio REST base URL (https://api.twilio.com)
	BaseURL string

	// From is the sending phone number in E.164 format
	From string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AccountSID == "" || c.AuthToken == "" || c.BaseURL == "" || c.From == "" {
		return ErrInvalidConfig
	}
	return nil
}
