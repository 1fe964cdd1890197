// Package config loads service configuration from a YAML file, a .env file,
// environment variables and command-line flags, in increasing precedence.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("scribe", &cfg,
//	    config.WithConfigFile(path),
//	    config.WithFlags(flags, map[string]string{"transcription.backend": "backend"}),
//	)
//
// Environment variables carry the service prefix and use "__" between nested
// keys, so SCRIBE_TRANSCRIPTION__LANGUAGE=de sets transcription.language.
// WithEnvAliases binds conventional names such as OPENAI_API_KEY.
package config
