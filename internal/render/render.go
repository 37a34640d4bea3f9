// Package render formats processed items as JSON records and notification text.
package render

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-feed-monitor/internal/domain"
)

const (
	fileTimeLayout = "20060102_150405"
	maxTitleRunes  = 50
	hashChars      = 8
)

// Marshal encodes the record pretty-printed without escaping HTML or non-ASCII text.
func Marshal(processed domain.ProcessedItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(processed); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON writes one record to w.
func WriteJSON(w io.Writer, processed domain.ProcessedItem) error {
	payload, err := Marshal(processed)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// FileName builds "<timestamp>_<title>_<hash>.json". The hash covers title and
// id so two items saved in the same second do not collide.
func FileName(processed domain.ProcessedItem, now time.Time) string {
	title := []rune(processed.News.Title)
	if len(title) > maxTitleRunes {
		title = title[:maxTitleRunes]
	}
	safe := strings.NewReplacer("/", "_", `\`, "_").Replace(string(title))

	sum := md5.Sum([]byte(processed.News.Title + processed.News.ID))
	hash := hex.EncodeToString(sum[:])[:hashChars]

	return fmt.Sprintf("%s_%s_%s.json", now.Format(fileTimeLayout), safe, hash)
}

// SaveToFile writes the record under dir and returns the file path.
func SaveToFile(dir string, processed domain.ProcessedItem, now time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("save directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create save directory: %w", err)
	}
	payload, err := Marshal(processed)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(processed, now))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// BuildMessage renders the notification text sent to every sink.
func BuildMessage(processed domain.ProcessedItem) string {
	news := processed.News
	lines := []string{
		"🔥 " + news.Title,
		"🔗 " + news.Link,
	}
	if news.Published != nil {
		lines = append(lines, "🕒 "+news.Published.Format(time.RFC3339))
	}
	switch {
	case processed.Script != nil:
		lines = append(lines, "\n📝 Roteiro:", *processed.Script)
	case processed.Error != nil:
		lines = append(lines, "\n⚠️ Erro ao gerar roteiro: "+*processed.Error)
	}
	return strings.Join(lines, "\n")
}
