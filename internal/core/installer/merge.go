package installer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/rookery-dev/rookery/internal/core/fsutil"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

// mergeConnector merges a connector entry into the provider's settings file
// under key.name, leaving every other entry and field untouched. Strict
// JSON files are edited in place so unrelated entries stay byte-identical;
// JSONC files (comments, trailing commas) are standardized first. The
// write is atomic: a crash mid-write cannot truncate the settings file.
func mergeConnector(settingsPath, key string, m *resource.MCPManifest) error {
	content, err := readSettings(settingsPath)
	if err != nil {
		return err
	}

	value, err := connectorValue(m)
	if err != nil {
		return err
	}

	entryPath := key + "." + escapeJSONKey(m.Name)
	newContent, err := sjson.SetRaw(content, entryPath, value)
	if err != nil {
		return fmt.Errorf("%w: setting connector entry %q: %v", resource.ErrParse, m.Name, err)
	}

	if err := fsutil.WriteAtomic(settingsPath, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", resource.ErrIO, settingsPath, err)
	}
	return nil
}

// removeConnector deletes the entry for name, if present. Missing files and
// missing entries are not errors.
func removeConnector(settingsPath, key, name string) error {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", resource.ErrIO, settingsPath, err)
	}
	content, err := normalizeSettings(data, settingsPath)
	if err != nil {
		return err
	}

	entryPath := key + "." + escapeJSONKey(name)
	if !gjson.Get(content, entryPath).Exists() {
		return nil
	}
	newContent, err := sjson.Delete(content, entryPath)
	if err != nil {
		return fmt.Errorf("%w: removing connector entry %q: %v", resource.ErrParse, name, err)
	}
	if err := fsutil.WriteAtomic(settingsPath, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", resource.ErrIO, settingsPath, err)
	}
	return nil
}

// readSettings loads the settings file as workable JSON. A missing file
// starts as an empty object.
func readSettings(settingsPath string) (string, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "{}", nil
		}
		return "", fmt.Errorf("%w: reading %s: %v", resource.ErrIO, settingsPath, err)
	}
	return normalizeSettings(data, settingsPath)
}

// normalizeSettings validates the document and, only when it relies on
// JSONC extensions, standardizes it to strict JSON. Plain JSON passes
// through untouched so the merge preserves its bytes.
func normalizeSettings(data []byte, settingsPath string) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "{}", nil
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return "", fmt.Errorf("%w: settings file %s: %v", resource.ErrParse, settingsPath, err)
	}
	if json.Valid(data) {
		return string(data), nil
	}
	return string(std), nil
}

// connectorValue builds the raw JSON merged in for a connector: command,
// args, and env for stdio connectors; type and url for remote ones.
func connectorValue(m *resource.MCPManifest) (string, error) {
	var v any
	if m.IsStdio() {
		entry := map[string]any{"command": m.Command}
		if len(m.Args) > 0 {
			entry["args"] = m.Args
		}
		if len(m.Env) > 0 {
			entry["env"] = m.Env
		}
		v = entry
	} else {
		transport := m.Transport
		if transport == "" {
			transport = "http"
		}
		v = map[string]any{"type": transport, "url": m.URL}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encoding connector entry: %v", resource.ErrParse, err)
	}
	return string(data), nil
}

// escapeJSONKey escapes a key for gjson/sjson path syntax, where dots and
// wildcards are separators.
func escapeJSONKey(key string) string {
	for _, c := range key {
		if c == '.' || c == '*' || c == '?' || c == '#' {
			return `\` + key
		}
	}
	return key
}
