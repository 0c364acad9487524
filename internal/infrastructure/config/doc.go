// Package config handles loading and validating sentra-bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (session token, API token, passwords) should be set
//     via environment variables
//   - The config file should have restricted permissions (0600)
//   - The API auth token guards commands that reach a live security panel
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Vendor.BaseURL)
package config
