package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files with priority .env.local > .env.
// godotenv.Load never overwrites variables already set, so the real environment always wins.
// Returns the files found; a file that fails to parse is an error rather than a silent skip.
func LoadDotEnv(dir string) ([]string, error) {
	candidates := []string{".env.local", ".env"}
	var loaded []string
	for _, f := range candidates {
		p := f
		if dir != "" {
			p = dir + string(os.PathSeparator) + f
		}
		if _, err := os.Stat(p); err == nil {
			loaded = append(loaded, p)
		}
	}
	if len(loaded) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(loaded...); err != nil {
		return loaded, fmt.Errorf("dotenv %v: %w", loaded, err)
	}
	return loaded, nil
}
