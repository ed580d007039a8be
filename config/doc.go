// Package config loads configuration files and environment variables into
// Go structs.
//
// It uses Viper to read a YAML config file and godotenv to load .env files,
// then binds environment variables onto nested keys.
//
// # Usage
//
//	var cfg httpclient.FileConfig
//	err := config.LoadConfig("spacekit", &cfg, config.WithEnvPrefix("SPACEKIT"))
//
// With a prefix, SPACEKIT_RETRY_LIMIT=3 sets retry_limit and SPACEKIT_TLS_CA_FILE
// sets tls.ca_file. Without one, every environment variable is considered.
package config
