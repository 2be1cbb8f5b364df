package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig wraps every Validate failure. ErrLoadConfig wraps failures
// reading the .env file, the YAML file or the environment.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// SettingError is one rejected setting, keyed by its YAML name.
type SettingError struct {
	Key string
	msg string
}

func (e *SettingError) Error() string { return e.msg }

// EnvVar is the environment variable that overrides the setting.
func (e *SettingError) EnvVar() string {
	return envPrefix + strings.ToUpper(e.Key)
}

func settingErr(key, format string, args ...any) *SettingError {
	return &SettingError{Key: key, msg: fmt.Sprintf(format, args...)}
}

// InvalidSettings returns every SettingError in err's tree, in the order
// Validate reported them.
func InvalidSettings(err error) []*SettingError {
	var out []*SettingError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *SettingError:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}
