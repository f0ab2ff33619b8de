// Package config provides configuration management for the forum importer.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags of each
// partial configuration.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, body limit and import rate limit
//   - Database: driver (mysql, postgres, sqlite) and connection details
//   - Storage: S3/MinIO credentials and the bucket holding record sets
//   - Log: logging level and format
//   - Import: default category, report prefix and preview cache lifetime
//
// Environment variables map to nested keys by replacing dots with
// underscores, e.g. DATABASE_DRIVER sets database.driver and
// IMPORT_DEFAULT_CATEGORY sets import.default_category.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Driver)
package config
