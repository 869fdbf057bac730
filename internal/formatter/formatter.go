// package formatter writes playlist exports to disk as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/spotauth/internal/services"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "markdown", "txt"}

// PlaylistExport is a playlist together with its tracks.
type PlaylistExport struct {
	Playlist   services.Playlist `json:"playlist"`
	Tracks     []services.Track  `json:"tracks"`
	ExportedAt time.Time         `json:"exported_at"`
}

// ValidFormat reports whether f is one of [Formats].
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, DurationMS, AddedAt
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "DurationMS", "AddedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.FormatInt(track.Duration.Milliseconds(), 10),
			track.AddedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format
func ExportToMarkdown(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)

	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Playlist.Description)
	}
	if export.Playlist.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", export.Playlist.Owner)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", visibility(export.Playlist.Public))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// MarshalJSON indents v with two spaces.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Write exports to dir in format and returns the created files.
//
// File names are derived from the playlist ID:
//   - json: {id}.json
//   - csv: {id}_tracks.csv and {id}_metadata.json
//   - markdown: {id}/README.md
//   - txt: {id}_tracks.txt
func Write(export *PlaylistExport, format, dir string) ([]string, error) {
	base := filepath.Join(dir, export.Playlist.ID)

	switch format {
	case "csv":
		return WriteCSVExport(export, base)
	case "markdown":
		return WriteMarkdownExport(export, base)
	case "txt":
		return WriteTextExport(export, base+"_tracks.txt")
	case "json", "":
		return WriteJSONExport(export, base+".json")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// WriteCSVExport writes {base}_tracks.csv and {base}_metadata.json.
func WriteCSVExport(export *PlaylistExport, base string) ([]string, error) {
	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := base + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := MarshalJSON(export.Playlist)
	if err != nil {
		return nil, err
	}

	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return []string{tracksFile, metadataFile}, nil
}

// WriteMarkdownExport writes README.md into its own directory.
func WriteMarkdownExport(export *PlaylistExport, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return []string{mdFile}, nil
}

// WriteTextExport writes the plain text rendering to path.
func WriteTextExport(export *PlaylistExport, path string) ([]string, error) {
	textData, err := ExportToText(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write text file: %w", err)
	}

	return []string{path}, nil
}

// WriteJSONExport writes the full export to path.
func WriteJSONExport(export *PlaylistExport, path string) ([]string, error) {
	data, err := MarshalJSON(export)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write JSON file: %w", err)
	}
	return []string{path}, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func visibility(public bool) string {
	if public {
		return "Public"
	}
	return "Private"
}
