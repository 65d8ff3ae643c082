// Package cli provides output helpers for the kioku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes a search response to w. Unknown formats are written as text.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\n",
				r.Rank, r.Score, r.Provenance, r.ID, TruncateWords(utils.CollapseWhitespace(r.Content), 12))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	st := response.Stats
	fmt.Fprintf(w, "\nFound %d results in %dms (%s mode; %d local, %d remote)\n",
		len(response.Results), st.DurationMs, response.Mode, st.LocalCount, st.RemoteCount)
	if !st.Online {
		fmt.Fprintln(w, "offline: remote store skipped")
	}
	if st.Degraded {
		fmt.Fprintln(w, "degraded: some strategies failed, see logs")
	}
	fmt.Fprintln(w)
	for _, r := range response.Results {
		writeOneResult(w, r)
	}
}

func writeOneResult(w io.Writer, r *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%s] Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f, Remote: %.4f)\n",
		r.Provenance, r.Rank, r.Score, r.KeywordScore, r.SemanticScore, r.RemoteScore)
	fmt.Fprintf(w, "ID: %s (%s)\n", r.ID, r.Collection)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created: %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(r.Content, 200))
	fmt.Fprintln(w)
}

// WriteSyncStatus writes the sync layer status to w.
func WriteSyncStatus(w io.Writer, status models.SyncStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	state := "offline"
	if status.IsOnline {
		state = "online"
	}
	fmt.Fprintf(w, "Connectivity:   %s\n", state)
	fmt.Fprintf(w, "Queued writes:  %d\n", status.QueueLength)
	fmt.Fprintf(w, "Sync running:   %t\n", status.SyncInProgress)
	if status.LastSyncAt != nil {
		fmt.Fprintf(w, "Last sync:      %s\n", status.LastSyncAt.Local().Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "Last sync:      never")
	}
	if status.LastError != "" {
		fmt.Fprintf(w, "Last error:     %s\n", status.LastError)
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
