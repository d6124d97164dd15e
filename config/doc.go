// Package config loads service configuration.
//
// It uses Viper to read a YAML file and godotenv to load an optional .env
// file, then lets environment variables override file values using
// underscore-separated paths (WHISPER_COMMAND -> whisper.command).
//
// # Usage
//
//	var cfg sidecar.Config
//	err := config.LoadConfig("whisper-sidecar", &cfg, config.WithConfigFile(path))
package config
