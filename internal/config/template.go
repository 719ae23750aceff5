package config

import "fmt"

func DefaultTemplate() string {
	return fmt.Sprintf(`version: 1
output_dir: %q
state_dir: %q

categories:
  - id: "chinese"
    label: "中文歌"
  - id: "japanese"
    label: "日文歌"
  - id: "english"
    label: "英文歌"
  - id: "instrumental"
    label: "純音樂"

downloader:
  bin: "yt-dlp"
  # ffmpeg_location: "/opt/homebrew/bin"
  embed_thumbnail: true
  add_metadata: true
  command_timeout_seconds: 0

network:
  # cookies_file: "~/cookies.txt"
  resilient: false
  extra_args: []

search:
  auto_results: 10
  manual_results: 15
  auto_min_seconds: 60
  auto_max_seconds: 1200
  manual_min_seconds: 30
  manual_max_seconds: 1800

batch:
  delay_seconds: 5
  rate_limit: true
  continue_on_error: true

store:
  driver: "sqlite"
  master_sheet: "downloads"

log:
  level: "info"
  file: "ytmp3.log"
  max_size_mb: 10
  max_backups: 3
  max_age_days: 28
`, defaultOutputDir(), defaultStateDir())
}
