package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jaa/ytmp3/internal/logging"
)

var categoryIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid config"
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Problems, "; "))
}

func Validate(cfg Config) error {
	problems := []string{}

	if cfg.Version != 1 {
		problems = append(problems, "version must be 1")
	}

	problems = append(problems, absolutePathProblems("output_dir", cfg.OutputDir)...)
	problems = append(problems, absolutePathProblems("state_dir", cfg.StateDir)...)

	if strings.TrimSpace(cfg.Downloader.Bin) == "" {
		problems = append(problems, "downloader.bin must be set")
	}
	if cfg.Downloader.CommandTimeoutSeconds < 0 {
		problems = append(problems, "downloader.command_timeout_seconds must be >= 0")
	}

	if len(cfg.Categories) == 0 {
		problems = append(problems, "at least one category must be configured")
	}
	seenIDs := map[string]struct{}{}
	for _, category := range cfg.Categories {
		if strings.TrimSpace(category.ID) == "" {
			problems = append(problems, "category.id must not be empty")
			continue
		}
		if !categoryIDPattern.MatchString(category.ID) {
			problems = append(problems, fmt.Sprintf("category %q has invalid id format", category.ID))
		}
		if _, exists := seenIDs[category.ID]; exists {
			problems = append(problems, fmt.Sprintf("duplicate category id %q", category.ID))
		}
		seenIDs[category.ID] = struct{}{}
		if strings.TrimSpace(category.Label) == "" {
			problems = append(problems, fmt.Sprintf("category %q label must be set", category.ID))
		}
		if category.Label == cfg.Store.MasterSheet {
			problems = append(problems, fmt.Sprintf("category label %q collides with store.master_sheet", category.Label))
		}
	}

	s := cfg.Search
	if s.AutoResults <= 0 || s.ManualResults <= 0 {
		problems = append(problems, "search.auto_results and search.manual_results must be > 0")
	}
	if s.AutoMinSeconds < 0 || s.AutoMaxSeconds <= s.AutoMinSeconds {
		problems = append(problems, "search auto duration bounds must satisfy 0 <= min < max")
	}
	if s.ManualMinSeconds < 0 || s.ManualMaxSeconds <= s.ManualMinSeconds {
		problems = append(problems, "search manual duration bounds must satisfy 0 <= min < max")
	}

	if cfg.Batch.DelaySeconds < 0 {
		problems = append(problems, "batch.delay_seconds must be >= 0")
	}

	switch cfg.Store.Driver {
	case StoreDriverSQLite, StoreDriverCSV:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported (sqlite or csv)", cfg.Store.Driver))
	}
	if strings.TrimSpace(cfg.Store.MasterSheet) == "" {
		problems = append(problems, "store.master_sheet must be set")
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		problems = append(problems, "log rotation limits must be >= 0")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func absolutePathProblems(field string, raw string) []string {
	expanded, err := ExpandPath(raw)
	if err != nil || strings.TrimSpace(expanded) == "" {
		return []string{field + " must be a valid path"}
	}
	if !filepath.IsAbs(expanded) {
		return []string{field + " must resolve to an absolute path"}
	}
	return nil
}
