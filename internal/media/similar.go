package media

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
)

// MetadataSource is what FindSimilar needs from a Reader.
type MetadataSource interface {
	Read(ctx context.Context, path string) (TrackMetadata, error)
}

type SimilarFile struct {
	Path     string
	Metadata TrackMetadata
	Size     string
}

// FindSimilar lists the other *.mp3 files in dir whose title equals
// target's and whose duration differs by at most one second.
func FindSimilar(ctx context.Context, source MetadataSource, dir string, target TrackMetadata, exclude string) ([]SimilarFile, error) {
	targetSeconds, ok := target.DurationSeconds()
	if !ok || target.Title == "" || target.Title == UnknownTitle {
		return nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(matches)

	excluded := filepath.Clean(exclude)
	similar := []SimilarFile{}
	for _, candidate := range matches {
		if filepath.Clean(candidate) == excluded {
			continue
		}
		if err := ctx.Err(); err != nil {
			return similar, err
		}
		meta, _ := source.Read(ctx, candidate)
		if meta.Title != target.Title {
			continue
		}
		seconds, known := meta.DurationSeconds()
		if !known {
			continue
		}
		diff := seconds - targetSeconds
		if diff < 0 {
			diff = -diff
		}
		if diff <= 1 {
			similar = append(similar, SimilarFile{Path: candidate, Metadata: meta, Size: FileSize(candidate)})
		}
	}
	return similar, nil
}
