package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
)

// LookupEnv reads one environment variable.
type LookupEnv func(key string) (string, bool)

// OSEnv reads the process environment.
func OSEnv() LookupEnv {
	return os.LookupEnv
}

// MapEnv reads from a fixed map.
func MapEnv(env map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// get returns the trimmed value of key; empty values count as unset.
func (e LookupEnv) get(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// first returns the first set variable among keys.
func (e LookupEnv) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := e.get(k); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ApplyInputs overrides file values with the action inputs present in env.
// Inputs left empty keep the file value.
func ApplyInputs(file *File, env LookupEnv) error {
	for _, f := range fields {
		name := InputEnvName(f.Input)
		raw, ok := env.get(name)
		if !ok {
			continue
		}
		if err := f.apply(file, raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfigValidation, name, err)
		}
	}
	return nil
}

func (f FieldDef) apply(file *File, raw string) error {
	switch dst := f.target(file).(type) {
	case *string:
		*dst = strings.TrimSpace(raw)
	case *[]string:
		*dst = patterns.FromLines(raw)
	case **bool:
		b, ok := boolWord(raw)
		if !ok {
			return fmt.Errorf(messages.ConfigBoolInputFmt, raw)
		}
		*dst = &b
	case *any:
		switch f.Type {
		case FieldPatternMap:
			*dst = parsePatternMapInput(raw)
		case FieldListOrBool:
			if b, ok := boolWord(raw); ok {
				*dst = b
			} else {
				*dst = patterns.FromLines(raw)
			}
		default:
			if b, ok := boolWord(raw); ok {
				*dst = b
			} else {
				*dst = strings.TrimSpace(raw)
			}
		}
	}
	return nil
}
