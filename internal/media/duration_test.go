package media

import "testing"

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{seconds: 0, want: "0:00"},
		{seconds: 59, want: "0:59"},
		{seconds: 180, want: "3:00"},
		{seconds: 3599, want: "59:59"},
		{seconds: 3600, want: "1:00:00"},
		{seconds: 3725, want: "1:02:05"},
		{seconds: 359999, want: "99:59:59"},
	}

	for _, tc := range tests {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestParseDurationRoundTrip(t *testing.T) {
	for s := 0; s < 360000; s++ {
		got, err := ParseDurationToSeconds(FormatDuration(s))
		if err != nil {
			t.Fatalf("parse %q: %v", FormatDuration(s), err)
		}
		if got != s {
			t.Fatalf("round trip for %d produced %d", s, got)
		}
	}
}

func TestParseDurationRejectsMalformedInput(t *testing.T) {
	for _, text := range []string{"", "180", "1:2:3:4", "a:00", "3:-1", UnknownDuration, "3:",
		"+3:00", "-3:00", "3:+5", "3:75", "1:60:00", "1:00:60", " 3 :00"} {
		if _, err := ParseDurationToSeconds(text); err == nil {
			t.Fatalf("expected error for %q", text)
		}
	}
}

func TestParseDurationLeadingComponentIsUnbounded(t *testing.T) {
	tests := map[string]int{"75:00": 4500, "0:05": 5, "100:00:00": 360000, "03:09": 189}
	for text, want := range tests {
		got, err := ParseDurationToSeconds(text)
		if err != nil || got != want {
			t.Fatalf("ParseDurationToSeconds(%q) = %d (%v), want %d", text, got, err, want)
		}
	}
}

func TestFormatViewCount(t *testing.T) {
	tests := []struct {
		views int64
		want  string
	}{
		{views: 999, want: "999"},
		{views: 1200, want: "1.2K"},
		{views: 3_400_000, want: "3.4M"},
		{views: 1_000_000_000, want: "1.0B"},
	}
	for _, tc := range tests {
		if got := FormatViewCount(tc.views); got != tc.want {
			t.Fatalf("FormatViewCount(%d) = %q, want %q", tc.views, got, tc.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(`AC/DC: "Back" <in> Black?|*`); got != `AC_DC_ _Back_ _in_ Black___` {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	if got := MP3Name("song.MP3"); got != "song.mp3" {
		t.Fatalf("expected single extension, got %q", got)
	}
	if got := Stem("/tmp/a/song.mp3"); got != "song" {
		t.Fatalf("expected stem song, got %q", got)
	}
}
