// Package secrets reads the local JSON secrets file that holds account keys
// kept out of the project configuration.
package secrets

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	xerrors "ChainForge/internal/errors"
)

// Store holds the string fields of a secrets file. Fields of other JSON
// types are remembered so that a lookup can say why it failed.
type Store struct {
	path      string
	values    map[string]string
	nonString map[string]struct{}
}

// Load 读取 JSON 格式的密钥文件，例如 {"key": "fdcb..."}。
func Load(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New(xerrors.CodeSecretsUnavailable, "secrets path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSecretsUnavailable, err, "读取密钥文件失败",
			xerrors.WithMetadata("path", path))
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeSecretsUnavailable, err, "解析密钥文件失败",
			xerrors.WithMetadata("path", path))
	}

	store := &Store{
		path:      path,
		values:    make(map[string]string, len(raw)),
		nonString: make(map[string]struct{}),
	}
	for field, value := range raw {
		s, ok := value.(string)
		if !ok {
			store.nonString[field] = struct{}{}
			continue
		}
		store.values[field] = strings.TrimSpace(s)
	}
	return store, nil
}

// Lookup returns the value of a secret field.
func (s *Store) Lookup(field string) (string, error) {
	if s == nil {
		return "", xerrors.New(xerrors.CodeSecretsUnavailable, "no secrets file configured",
			xerrors.WithMetadata("field", field))
	}
	if _, ok := s.nonString[field]; ok {
		return "", xerrors.Newf(xerrors.CodeSecretsUnavailable, "secret field %q in %s is not a string", field, s.path)
	}
	value, ok := s.values[field]
	if !ok || value == "" {
		return "", xerrors.Newf(xerrors.CodeSecretNotFound, "secret %q not found in %s", field, s.path)
	}
	return value, nil
}

// Fields lists the available field names.
func (s *Store) Fields() []string {
	if s == nil {
		return nil
	}
	fields := make([]string, 0, len(s.values))
	for field := range s.values {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Path returns the file the store was loaded from.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
