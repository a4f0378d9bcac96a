package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// minSigningSecretLen is the minimum cookie signing secret length outside
// dev mode.
const minSigningSecretLen = 32

// Validate validates the Config using struct tags plus cross-field rules.
// Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateSigningSecret(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateTLS(); err != nil {
		return err
	}
	return nil
}

// validateSigningSecret enforces a real secret outside dev mode. Weak
// secrets make every session cookie forgeable.
func (c *Config) validateSigningSecret() error {
	if c.DevMode {
		return nil
	}
	if len(c.Session.SigningSecret) < minSigningSecretLen {
		return fmt.Errorf("session.signing_secret must be at least %d characters (or enable dev_mode)", minSigningSecretLen)
	}
	return nil
}

// validateStore ensures the sqlite driver has a database path.
func (c *Config) validateStore() error {
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return errors.New("store.path is required when store.driver is sqlite")
	}
	return nil
}

// validateTLS ensures the certificate and key come as a pair.
func (c *Config) validateTLS() error {
	hasCert := c.Server.TLSCert != ""
	hasKey := c.Server.TLSKey != ""
	if hasCert != hasKey {
		return errors.New("server: tls_cert and tls_key must both be set or both be empty")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
