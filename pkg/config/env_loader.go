package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads KEY=VALUE files into the process environment.
// Variables already set are kept, and files that do not exist are skipped.
func LoadEnvFiles(paths ...string) ([]string, error) {
	var loaded []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		log.Printf("[ENV] Loaded environment from %s", path)
		loaded = append(loaded, path)
	}
	return loaded, nil
}
