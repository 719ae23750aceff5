package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnvFiles applies .env then .env.local from cwd. Variables already
// in the process environment win over both files.
func loadDotEnvFiles(cwd string, environ []string, setenv func(string, string) error) error {
	if strings.TrimSpace(cwd) == "" {
		return nil
	}
	if setenv == nil {
		return fmt.Errorf("setenv is required")
	}

	protected := map[string]struct{}{}
	for _, pair := range environ {
		key, _, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		protected[key] = struct{}{}
	}

	merged := map[string]string{}
	for _, file := range []string{filepath.Join(cwd, ".env"), filepath.Join(cwd, ".env.local")} {
		values, err := godotenv.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		for key, value := range values {
			merged[key] = value
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, exists := protected[key]; exists {
			continue
		}
		if err := setenv(key, merged[key]); err != nil {
			return fmt.Errorf("set %s from dotenv: %w", key, err)
		}
	}
	return nil
}
