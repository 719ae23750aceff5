package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type LoadOptions struct {
	ExplicitPath string
	WorkingDir   string
	Env          map[string]string
}

type fileConfig struct {
	Version    *int            `yaml:"version"`
	OutputDir  *string         `yaml:"output_dir"`
	StateDir   *string         `yaml:"state_dir"`
	Categories *[]fileCategory `yaml:"categories"`
	Downloader fileDownloader  `yaml:"downloader"`
	Network    fileNetwork     `yaml:"network"`
	Search     fileSearch      `yaml:"search"`
	Batch      fileBatch       `yaml:"batch"`
	Store      fileStore       `yaml:"store"`
	Log        fileLog         `yaml:"log"`
}

type fileCategory struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Dir   string `yaml:"dir"`
}

type fileDownloader struct {
	Bin                   *string `yaml:"bin"`
	FFmpegLocation        *string `yaml:"ffmpeg_location"`
	EmbedThumbnail        *bool   `yaml:"embed_thumbnail"`
	AddMetadata           *bool   `yaml:"add_metadata"`
	CommandTimeoutSeconds *int    `yaml:"command_timeout_seconds"`
}

type fileNetwork struct {
	CookiesFile *string   `yaml:"cookies_file"`
	UserAgent   *string   `yaml:"user_agent"`
	Resilient   *bool     `yaml:"resilient"`
	ExtraArgs   *[]string `yaml:"extra_args"`
}

type fileSearch struct {
	AutoResults      *int      `yaml:"auto_results"`
	ManualResults    *int      `yaml:"manual_results"`
	AutoMinSeconds   *int      `yaml:"auto_min_seconds"`
	AutoMaxSeconds   *int      `yaml:"auto_max_seconds"`
	ManualMinSeconds *int      `yaml:"manual_min_seconds"`
	ManualMaxSeconds *int      `yaml:"manual_max_seconds"`
	Denylist         *[]string `yaml:"denylist"`
	Allowlist        *[]string `yaml:"allowlist"`
}

type fileBatch struct {
	DelaySeconds    *int  `yaml:"delay_seconds"`
	RateLimit       *bool `yaml:"rate_limit"`
	ContinueOnError *bool `yaml:"continue_on_error"`
}

type fileStore struct {
	Driver      *StoreDriver `yaml:"driver"`
	Path        *string      `yaml:"path"`
	MasterSheet *string      `yaml:"master_sheet"`
}

type fileLog struct {
	Level      *string `yaml:"level"`
	File       *string `yaml:"file"`
	MaxSizeMB  *int    `yaml:"max_size_mb"`
	MaxBackups *int    `yaml:"max_backups"`
	MaxAgeDays *int    `yaml:"max_age_days"`
	Compress   *bool   `yaml:"compress"`
}

// Load layers defaults, the user file, the project file (or an explicit
// file instead of both) and YTMP3_* environment overrides, in that order.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	cwd := opts.WorkingDir
	if strings.TrimSpace(cwd) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}

	env := opts.Env
	if env == nil {
		env = osEnvMap()
	}

	if explicit := strings.TrimSpace(opts.ExplicitPath); explicit != "" {
		if err := mergeFile(&cfg, explicit, true); err != nil {
			return Config{}, err
		}
	} else {
		userPath, err := UserConfigPath()
		if err != nil {
			return Config{}, err
		}
		if err := mergeFile(&cfg, userPath, false); err != nil {
			return Config{}, err
		}

		if err := mergeFile(&cfg, ProjectConfigPath(cwd), false); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg, env); err != nil {
		return Config{}, err
	}

	normalize(&cfg)
	return cfg, nil
}

func mergeFile(cfg *Config, path string, required bool) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file does not exist: %s", path)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(payload, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setInt(&cfg.Version, fc.Version)
	setString(&cfg.OutputDir, fc.OutputDir)
	setString(&cfg.StateDir, fc.StateDir)

	if fc.Categories != nil {
		cfg.Categories = make([]Category, 0, len(*fc.Categories))
		for _, fcat := range *fc.Categories {
			cfg.Categories = append(cfg.Categories, Category{
				ID:    strings.TrimSpace(fcat.ID),
				Label: strings.TrimSpace(fcat.Label),
				Dir:   strings.TrimSpace(fcat.Dir),
			})
		}
	}

	setString(&cfg.Downloader.Bin, fc.Downloader.Bin)
	setString(&cfg.Downloader.FFmpegLocation, fc.Downloader.FFmpegLocation)
	setBool(&cfg.Downloader.EmbedThumbnail, fc.Downloader.EmbedThumbnail)
	setBool(&cfg.Downloader.AddMetadata, fc.Downloader.AddMetadata)
	setInt(&cfg.Downloader.CommandTimeoutSeconds, fc.Downloader.CommandTimeoutSeconds)

	setString(&cfg.Network.CookiesFile, fc.Network.CookiesFile)
	setString(&cfg.Network.UserAgent, fc.Network.UserAgent)
	setBool(&cfg.Network.Resilient, fc.Network.Resilient)
	setStrings(&cfg.Network.ExtraArgs, fc.Network.ExtraArgs)

	setInt(&cfg.Search.AutoResults, fc.Search.AutoResults)
	setInt(&cfg.Search.ManualResults, fc.Search.ManualResults)
	setInt(&cfg.Search.AutoMinSeconds, fc.Search.AutoMinSeconds)
	setInt(&cfg.Search.AutoMaxSeconds, fc.Search.AutoMaxSeconds)
	setInt(&cfg.Search.ManualMinSeconds, fc.Search.ManualMinSeconds)
	setInt(&cfg.Search.ManualMaxSeconds, fc.Search.ManualMaxSeconds)
	setStrings(&cfg.Search.Denylist, fc.Search.Denylist)
	setStrings(&cfg.Search.Allowlist, fc.Search.Allowlist)

	setInt(&cfg.Batch.DelaySeconds, fc.Batch.DelaySeconds)
	setBool(&cfg.Batch.RateLimit, fc.Batch.RateLimit)
	setBool(&cfg.Batch.ContinueOnError, fc.Batch.ContinueOnError)

	if fc.Store.Driver != nil {
		cfg.Store.Driver = StoreDriver(strings.ToLower(strings.TrimSpace(string(*fc.Store.Driver))))
	}
	setString(&cfg.Store.Path, fc.Store.Path)
	setString(&cfg.Store.MasterSheet, fc.Store.MasterSheet)

	setString(&cfg.Log.Level, fc.Log.Level)
	setString(&cfg.Log.File, fc.Log.File)
	setInt(&cfg.Log.MaxSizeMB, fc.Log.MaxSizeMB)
	setInt(&cfg.Log.MaxBackups, fc.Log.MaxBackups)
	setInt(&cfg.Log.MaxAgeDays, fc.Log.MaxAgeDays)
	setBool(&cfg.Log.Compress, fc.Log.Compress)

	return nil
}

func applyEnvOverrides(cfg *Config, env map[string]string) error {
	if value := strings.TrimSpace(env["YTMP3_OUTPUT_DIR"]); value != "" {
		cfg.OutputDir = value
	}
	if value := strings.TrimSpace(env["YTMP3_STATE_DIR"]); value != "" {
		cfg.StateDir = value
	}
	if value := strings.TrimSpace(env["YTMP3_DOWNLOADER_BIN"]); value != "" {
		cfg.Downloader.Bin = value
	}
	if value := strings.TrimSpace(env["YTMP3_FFMPEG_LOCATION"]); value != "" {
		cfg.Downloader.FFmpegLocation = value
	}
	if value := strings.TrimSpace(env["YTMP3_COOKIES_FILE"]); value != "" {
		cfg.Network.CookiesFile = value
	}
	if value := strings.TrimSpace(env["YTMP3_USER_AGENT"]); value != "" {
		cfg.Network.UserAgent = value
	}
	if value := strings.TrimSpace(env["YTMP3_STORE_DRIVER"]); value != "" {
		cfg.Store.Driver = StoreDriver(strings.ToLower(value))
	}
	if value := strings.TrimSpace(env["YTMP3_STORE_PATH"]); value != "" {
		cfg.Store.Path = value
	}
	if value := strings.TrimSpace(env["YTMP3_LOG_LEVEL"]); value != "" {
		cfg.Log.Level = value
	}
	if value := strings.TrimSpace(env["YTMP3_LOG_FILE"]); value != "" {
		cfg.Log.File = value
	}
	if value := strings.TrimSpace(env["YTMP3_BATCH_DELAY_SECONDS"]); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid YTMP3_BATCH_DELAY_SECONDS value %q: %w", value, err)
		}
		cfg.Batch.DelaySeconds = parsed
	}
	if value := strings.TrimSpace(env["YTMP3_CONTINUE_ON_ERROR"]); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid YTMP3_CONTINUE_ON_ERROR value %q: %w", value, err)
		}
		cfg.Batch.ContinueOnError = parsed
	}
	if value := strings.TrimSpace(env["YTMP3_RESILIENT"]); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid YTMP3_RESILIENT value %q: %w", value, err)
		}
		cfg.Network.Resilient = parsed
	}
	if value := strings.TrimSpace(env["YTMP3_COMMAND_TIMEOUT_SECONDS"]); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid YTMP3_COMMAND_TIMEOUT_SECONDS value %q: %w", value, err)
		}
		cfg.Downloader.CommandTimeoutSeconds = parsed
	}
	return nil
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.Store.MasterSheet) == "" {
		cfg.Store.MasterSheet = "downloads"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverSQLite
	}
	if strings.TrimSpace(cfg.Downloader.Bin) == "" {
		cfg.Downloader.Bin = "yt-dlp"
	}
	for i := range cfg.Categories {
		if cfg.Categories[i].Dir == "" {
			cfg.Categories[i].Dir = cfg.Categories[i].Label
		}
	}
}

func osEnvMap() map[string]string {
	result := map[string]string{}
	for _, pair := range os.Environ() {
		pieces := strings.SplitN(pair, "=", 2)
		if len(pieces) == 2 {
			result[pieces[0]] = pieces[1]
		}
	}
	return result
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setStrings(dst *[]string, src *[]string) {
	if src != nil {
		*dst = append([]string{}, (*src)...)
	}
}
