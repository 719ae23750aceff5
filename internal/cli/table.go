package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/jaa/ytmp3/internal/dedupe"
	"github.com/jaa/ytmp3/internal/media"
	"github.com/jaa/ytmp3/internal/search"
	"github.com/jaa/ytmp3/internal/store"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

func renderCandidates(w io.Writer, candidates []search.Candidate) {
	table := newTable(w, []string{"#", "Title", "Channel", "Duration", "Views"})
	for i, c := range candidates {
		table.Append([]string{
			strconv.Itoa(i + 1),
			c.Title,
			c.Channel,
			media.FormatDuration(c.DurationSeconds),
			media.FormatViewCount(c.ViewCount),
		})
	}
	table.Render()
}

func renderRows(w io.Writer, rows []store.Row) {
	table := newTable(w, []string{"Serial", "Timestamp", "Filename", "Title", "Artist", "Duration", "Size", "Category"})
	for _, row := range rows {
		table.Append([]string{
			strconv.Itoa(row.Serial),
			row.Timestamp,
			row.Filename,
			row.Title,
			row.Artist,
			row.Duration,
			row.FileSize,
			row.Category,
		})
	}
	table.Render()
}

func renderSimilar(w io.Writer, similar []media.SimilarFile) {
	table := newTable(w, []string{"File", "Title", "Duration", "Size"})
	for _, s := range similar {
		table.Append([]string{filepath.Base(s.Path), s.Metadata.Title, s.Metadata.Duration, s.Size})
	}
	table.Render()
}

func renderDuplicate(w io.Writer, pc dedupe.PromptContext) {
	table := newTable(w, []string{"", "Title", "Duration", "Size", "Logged"})
	table.Append([]string{"existing", pc.Existing.Title, pc.Existing.Duration, pc.Existing.FileSize, fmt.Sprintf("#%d %s", pc.Existing.Serial, pc.Existing.Timestamp)})
	table.Append([]string{"new", pc.NewTitle, pc.NewDuration, pc.NewSize, ""})
	table.Render()
}
