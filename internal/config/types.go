package config

type StoreDriver string

const (
	StoreDriverSQLite StoreDriver = "sqlite"
	StoreDriverCSV    StoreDriver = "csv"
)

type Config struct {
	Version    int        `yaml:"version"`
	OutputDir  string     `yaml:"output_dir"`
	StateDir   string     `yaml:"state_dir"`
	Categories []Category `yaml:"categories"`
	Downloader Downloader `yaml:"downloader"`
	Network    Network    `yaml:"network"`
	Search     Search     `yaml:"search"`
	Batch      Batch      `yaml:"batch"`
	Store      Store      `yaml:"store"`
	Log        Log        `yaml:"log"`
}

// Category routes a download into its own folder and its own log sheet.
type Category struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Dir   string `yaml:"dir,omitempty"`
}

type Downloader struct {
	Bin                   string `yaml:"bin"`
	FFmpegLocation        string `yaml:"ffmpeg_location"`
	EmbedThumbnail        bool   `yaml:"embed_thumbnail"`
	AddMetadata           bool   `yaml:"add_metadata"`
	CommandTimeoutSeconds int    `yaml:"command_timeout_seconds"`
}

type Network struct {
	CookiesFile string   `yaml:"cookies_file"`
	UserAgent   string   `yaml:"user_agent"`
	Resilient   bool     `yaml:"resilient"`
	ExtraArgs   []string `yaml:"extra_args"`
}

type Search struct {
	AutoResults      int      `yaml:"auto_results"`
	ManualResults    int      `yaml:"manual_results"`
	AutoMinSeconds   int      `yaml:"auto_min_seconds"`
	AutoMaxSeconds   int      `yaml:"auto_max_seconds"`
	ManualMinSeconds int      `yaml:"manual_min_seconds"`
	ManualMaxSeconds int      `yaml:"manual_max_seconds"`
	Denylist         []string `yaml:"denylist"`
	Allowlist        []string `yaml:"allowlist"`
}

type Batch struct {
	DelaySeconds    int  `yaml:"delay_seconds"`
	RateLimit       bool `yaml:"rate_limit"`
	ContinueOnError bool `yaml:"continue_on_error"`
}

type Store struct {
	Driver      StoreDriver `yaml:"driver"`
	Path        string      `yaml:"path"`
	MasterSheet string      `yaml:"master_sheet"`
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func DefaultCategories() []Category {
	return []Category{
		{ID: "chinese", Label: "中文歌"},
		{ID: "japanese", Label: "日文歌"},
		{ID: "english", Label: "英文歌"},
		{ID: "instrumental", Label: "純音樂"},
	}
}

func DefaultConfig() Config {
	return Config{
		Version:    1,
		OutputDir:  defaultOutputDir(),
		StateDir:   defaultStateDir(),
		Categories: DefaultCategories(),
		Downloader: Downloader{
			Bin:            "yt-dlp",
			EmbedThumbnail: true,
			AddMetadata:    true,
		},
		Search: Search{
			AutoResults:      10,
			ManualResults:    15,
			AutoMinSeconds:   60,
			AutoMaxSeconds:   1200,
			ManualMinSeconds: 30,
			ManualMaxSeconds: 1800,
			Denylist:         []string{"trailer", "teaser", "preview", "short", "snippet", "clip", "預告", "片段", "開場", "予告"},
			Allowlist:        []string{"full song", "full version", "完整版"},
		},
		Batch: Batch{
			DelaySeconds:    5,
			RateLimit:       true,
			ContinueOnError: true,
		},
		Store: Store{
			Driver:      StoreDriverSQLite,
			MasterSheet: "downloads",
		},
		Log: Log{
			Level:      "info",
			File:       "ytmp3.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// CategoryByID returns the configured category with id, if any.
func (c Config) CategoryByID(id string) (Category, bool) {
	for _, category := range c.Categories {
		if category.ID == id {
			return category, true
		}
	}
	return Category{}, false
}
