package cfg

import "fmt"

// Token holds the key for token validation.
type Token struct {
	PublicKey string
}

// Validate .
func (t Token) Validate() error {
	if t.PublicKey == "" {
		return fmt.Errorf("public key env var is missing")
	}
	return nil
}
