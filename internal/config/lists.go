package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// listFile is the structured list layout: {"items": [...]}.
type listFile struct {
	Items []string `json:"items" yaml:"items"`
}

// ReadList loads a list of strings from path. .yaml/.yml and .json files hold
// either a bare array or an object with an "items" array; anything else is
// read as text with one entry per line. Blank entries are dropped.
func ReadList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		items, err = decodeList(raw, yaml.Unmarshal)
	case ".json":
		items, err = decodeList(raw, json.Unmarshal)
	default:
		items, err = readLines(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

func decodeList(raw []byte, unmarshal func([]byte, any) error) ([]string, error) {
	var bare []string
	if err := unmarshal(raw, &bare); err == nil {
		return cleanList(bare), nil
	}
	var wrapped listFile
	if err := unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return cleanList(wrapped.Items), nil
}

func readLines(raw []byte) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

// cleanList drops blank entries.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
