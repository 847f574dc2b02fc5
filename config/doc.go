// Package config provides configuration loading and validation for the
// report server.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (CANNEDREPORTS_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with CANNEDREPORTS_ prefix:
//   - server.port → CANNEDREPORTS_SERVER_PORT
//   - store.type → CANNEDREPORTS_STORE_TYPE
//   - authorization.enable_authorization → CANNEDREPORTS_AUTHORIZATION_ENABLE_AUTHORIZATION
//
// # Store Selection
//
// store.type picks the backend. s3 needs store.bucket, filesystem needs
// store.path, and sqlite or postgres need store.dsn and store.table.
// Settings of the other backends are ignored.
package config
