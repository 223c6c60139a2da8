// Package config loads datacleaner configuration.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//  1. Default() values
//  2. A YAML file (datacleaner.yaml or configs/datacleaner.yaml, or the
//     path given to LoadFile)
//  3. DC_* environment variables
//
// # Environment Variables
//
// Nested sections map to underscore separated names:
//
//	DC_SERVER_PORT=9090
//	DC_SESSIONS_MAX_SESSIONS=10
//	DC_SECURITY_ALLOWED_ORIGINS=http://a.example,http://b.example
//	DC_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// Tests use Default() directly.
package config
