package registry

import "github.com/lzjever/escn/internal/core"

type Config struct {
	BaseURL    string `envconfig:"ESC_API_URL" default:"https://api.europeanstudentcard.eu/v1/"`
	APIKey     string `envconfig:"ESC_API_KEY" required:"true"`
	PIC        string `envconfig:"ESC_PIC" required:"true"`
	CardType   string `envconfig:"ESC_CARD_TYPE" default:"1"`
	Prefix     string `envconfig:"ESC_PREFIX" default:"1"`
	ExpiryDate string `envconfig:"ESC_EXPIRY_DATE" default:"2050-01-01T00:00:00.000Z"`
}

// Validate checks that Prefix and PIC can produce an ESCN.
func (c Config) Validate() error {
	_, err := core.Node(c.Prefix, c.PIC)
	return err
}
