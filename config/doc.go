// Package config loads struct-based configuration from environment variables,
// with custom prefixes, automatic type conversion and .env file support.
//
// # Basic Usage
//
// Define a configuration struct with environment variable tags:
//
//	type Config struct {
//	    Mode        string        `env:"BLOCKMODE_MODE,default:CBC"`
//	    Key         string        `env:"BLOCKMODE_KEY,required"`
//	    SegmentSize int           `env:"BLOCKMODE_SEGMENT_SIZE,default:128"`
//	    Timeout     time.Duration `env:"TIMEOUT,default:30s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// With the default prefix the variables read are CIPHERKIT_BLOCKMODE_MODE,
// CIPHERKIT_BLOCKMODE_KEY and so on.
//
// # Custom Prefixes
//
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//
// Packages in this module expose the same thing through a builder:
//
//	c, err := blockmode.WithPrefix("MYAPP_").New()
//
// # Supported Types
//
//   - string
//   - int, int8, int16, int32, int64 and the unsigned variants
//   - float32, float64
//   - bool ("true", "false", "1", "0", ...)
//   - time.Duration ("1h30m", "45s", ...)
//   - []string (comma separated)
//
// Fields of any other type are left untouched.
//
// # Tag Options
//
//   - `default:value` is used when the variable is unset or empty. Defaults
//     cannot contain commas.
//   - `required` makes Load return a *MissingError when no value is available.
//
// # Environment File Support
//
// A .env file in the working directory is read on every Load. Variables
// already present in the process environment take precedence.
//
// # Debug Mode
//
// Set <PREFIX>CONFIG_DEBUG=true or LoadOptions.Debug to print every resolved
// variable. Values of variables whose names contain KEY, SECRET, PASSWORD or
// PASSPHRASE are printed as [REDACTED].
//
// # Errors
//
// Conversion failures are returned as *FieldError (which unwraps to the strconv
// or time error), missing required variables as *MissingError.
package config
