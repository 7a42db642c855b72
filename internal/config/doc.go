// Package config loads the toolgate YAML configuration.
//
// Credentials are supplied through ${VAR} environment expansion so secrets
// never live in the config file itself:
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//	database:
//	  path: "./toolgate.db"
//	dispatch:
//	  timeout: "30s"
//	logging:
//	  level: "info"
//	  format: "text"
//	services:
//	  github:
//	    enabled: true
//	    api_key: "${GITHUB_API_KEY}"
//	  linear:
//	    enabled: true
//	    api_key: "${LINEAR_API_KEY}"
package config
