// Package config handles configuration loading for sml-gateway.
//
// # Configuration File
//
// Locations (in order):
//
//  1. Path passed on the command line (--config)
//  2. Path from SML_CONFIG environment variable
//  3. ./config.yaml (current directory)
//
// Files ending in .toml are parsed as TOML; anything else is YAML. Both use
// the same keys.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${SML_JWT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  grpc_addr: "0.0.0.0:50051"   # optional
//	  environment: "production"     # hides internal error details
//	  shutdown_timeout: "10s"
//
//	database:
//	  path: "./sml.db"
//
//	auth:
//	  jwt_secret: "${SML_JWT_SECRET}"  # at least 32 bytes
//	  token_ttl: "24h"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
//	workflows:
//	  - name: welcome-new-users
//	    on: data.models.User.created
//	    run: actions.users.welcome
//	    params:
//	      userId: "$.id"
//
// Durations use time.ParseDuration syntax.
package config
