package core

import "errors"

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// A Validator must be supplied through WithValidator; all other options
// default to the secure choice (credentials required, no logging).
func New(opts ...Option) (*Core, error) {
	c := &Core{
		credentialsOptional: false,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.validator == nil {
		return nil, errors.New("validator is required (use WithValidator)")
	}

	return c, nil
}

// WithValidator sets the validator for the Core. Required.
func WithValidator(validator Validator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithCredentialsOptional configures whether requests without a token are
// allowed to proceed. When true, CheckToken returns (nil, nil) for an empty
// token and no claims are attached. Default: false.
func WithCredentialsOptional(optional bool) Option {
	return func(c *Core) error {
		c.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets an optional logger for the Core. log/slog's *Logger
// satisfies the interface directly.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
