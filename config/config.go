package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPrefix is prepended to every environment variable name unless
// LoadOptions overrides it.
const DefaultPrefix = "CIPHERKIT_"

// LoadOptions defines options for loading configuration from environment variables.
type LoadOptions struct {
	Prefix string // Prefix to prepend to environment variable names (default: "CIPHERKIT_")
	Debug  bool   // Print every resolved variable while loading
}

// MissingError reports a field tagged `required` whose variable was not set.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("config: required environment variable %s is not set", e.Name)
}

// FieldError reports a value that could not be converted to its field type.
type FieldError struct {
	Name  string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: cannot parse %s=%q: %v", e.Name, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Load populates a struct from .env file and environment variables using reflection.
// A .env file in the working directory is loaded first if present; variables
// already set in the process environment win over it.
//
// Field tags:
//   - `env:"VAR_NAME"`: Maps the field to the specified environment variable
//   - `env:"VAR_NAME,default:value"`: Provides a default value if env var is not set
//   - `env:"VAR_NAME,required"`: Fails with *MissingError when neither is available
//
// Environment variable names are prefixed with LoadOptions.Prefix
// (defaults to "CIPHERKIT_").
//
// Example:
//
//	type Config struct {
//	    Mode        string `env:"BLOCKMODE_MODE,default:CBC"`
//	    SegmentSize int    `env:"BLOCKMODE_SEGMENT_SIZE,default:128"`
//	    Debug       bool   `env:"BLOCKMODE_DEBUG,default:false"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//	// Will look for MYAPP_BLOCKMODE_MODE, MYAPP_BLOCKMODE_SEGMENT_SIZE, ...
func Load(cfg interface{}, opts ...LoadOptions) error {
	options := LoadOptions{Prefix: DefaultPrefix}
	if len(opts) > 0 {
		options = opts[0]
	}
	// Silently try to load .env file, ignore if not found
	_ = godotenv.Load()

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: Load expects a non-nil pointer to a struct, got %T", cfg)
	}

	v := rv.Elem()
	t := v.Type()
	printDebug := options.Debug || os.Getenv(options.Prefix+"CONFIG_DEBUG") == "true"

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" || !v.Field(i).CanSet() {
			continue
		}

		name, defaultValue, required := parseTag(envTag)

		fullEnvName := options.Prefix + name
		value, ok := os.LookupEnv(fullEnvName)
		if !ok || value == "" {
			value = defaultValue
		}
		if value == "" && required {
			return &MissingError{Name: fullEnvName}
		}
		if printDebug {
			fmt.Printf("[CIPHERKIT] %s=%s\n", fullEnvName, redact(name, value))
		}

		if value != "" {
			if err := setFieldValue(v.Field(i), value); err != nil {
				return &FieldError{Name: fullEnvName, Value: redact(name, value), Err: err}
			}
		}
	}

	return nil
}

// parseTag splits `NAME,opt,default:x` into its parts. Unknown options are ignored.
func parseTag(tag string) (name, defaultValue string, required bool) {
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, part := range parts[1:] {
		switch {
		case strings.HasPrefix(part, "default:"):
			if defaultValue == "" {
				defaultValue = strings.TrimPrefix(part, "default:")
			}
		case part == "required":
			required = true
		}
	}
	return name, defaultValue, required
}

// redact hides values of variables that carry key material.
func redact(name, value string) string {
	if value == "" {
		return value
	}
	upper := strings.ToUpper(name)
	for _, marker := range []string{"KEY", "SECRET", "PASSWORD", "PASSPHRASE"} {
		if strings.Contains(upper, marker) {
			return "[REDACTED]"
		}
	}
	return value
}

// setFieldValue converts an environment string into the field's type.
//
// Supported types: string, signed and unsigned integers, bool, float32/64,
// time.Duration and []string (comma separated). Other kinds are skipped.
func setFieldValue(field reflect.Value, value string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		items := strings.Split(value, ",")
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		field.Set(reflect.ValueOf(out))
	default:
		// Skip unsupported field types silently
		return nil
	}
	return nil
}
