package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
)

// stateFile is the on-disk ledger layout.
type stateFile struct {
	SeenIDs []string `json:"seen_ids"`
}

// jsonStore keeps the ledger in a single pretty-printed JSON file.
type jsonStore struct {
	path string
	log  logger.Logger
}

func newJSONStore(path string, log logger.Logger) *jsonStore {
	return &jsonStore{path: path, log: log}
}

func (j *jsonStore) Load() *Set {
	raw, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSet()
	}
	if err != nil {
		j.log.ErrorObj("ledger read failed, starting empty", "ledger_error", map[string]any{
			"path":  j.path,
			"error": err.Error(),
		})
		return NewSet()
	}

	var state stateFile
	if err := json.Unmarshal(raw, &state); err != nil {
		j.log.ErrorObj("ledger file is corrupt, starting empty", "ledger_error", map[string]any{
			"path":  j.path,
			"error": err.Error(),
		})
		return NewSet()
	}
	return NewSet(state.SeenIDs...)
}

// Save writes the complete set through a temp file and rename.
func (j *jsonStore) Save(ids *Set) error {
	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	state := stateFile{SeenIDs: ids.IDs()}
	if state.SeenIDs == nil {
		state.SeenIDs = []string{}
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(j.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func (j *jsonStore) Close() error { return nil }
