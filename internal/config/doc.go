// Package config handles configuration loading for loom-server.
//
// Configuration is loaded from YAML with ${VAR_NAME} environment variable
// expansion and validated on load.
//
// Default config locations (in order):
//
//  1. Path from LOOM_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/loom/loom.yaml
//  3. ~/.config/loom/loom.yaml
//
// Example:
//
//	server:
//	  http_addr: ":8080"
//	database:
//	  uri: "${LOOM_MONGO_URI}"
//	  name: "loom"
//	auth:
//	  jwt_secret: "${LOOM_JWT_SECRET}"   # min 32 bytes
//	  token_ttl: "1h"
//	cache:
//	  enabled: false
//	  url: "redis://localhost:6379"
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json
package config
