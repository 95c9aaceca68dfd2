package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnsureParentDir ensures the directory holding path exists.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// JSONToYAML renders v as block YAML using its JSON field names and order.
func JSONToYAML(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode json as yaml: %w", err)
	}
	blockStyle(&doc)
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return out, nil
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// ExpandInputs resolves glob patterns and literal paths into a sorted,
// de-duplicated file list. URLs pass through unchanged.
func ExpandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}
	for _, arg := range args {
		l := strings.ToLower(arg)
		if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
			add(arg)
			continue
		}
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(files)
	return files
}

// UniquePath returns dir/base+suffix, or dir/base__N+suffix (N >= 2) when
// that name is already taken on disk or in reserved.
func UniquePath(dir, base, suffix string, reserved map[string]struct{}) string {
	taken := func(p string) bool {
		if _, ok := reserved[p]; ok {
			return true
		}
		_, err := os.Stat(p)
		return err == nil
	}
	p := filepath.Join(dir, base+suffix)
	for i := 2; taken(p); i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, i, suffix))
	}
	return p
}
