package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName derives the fixture file name from the user's address. Path
// separators are replaced too so an address can never escape the directory.
func FileName(userAddress string) string {
	name := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(userAddress)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name + "-proof.json"
}

type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Save writes f and returns the file path, replacing an older fixture for
// the same address.
func (s *FileStore) Save(f Fixture) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create fixture dir: %w", err)
	}

	content, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, FileName(f.UserAddress))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", fmt.Errorf("write fixture: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replace fixture: %w", err)
	}
	return path, nil
}

func (s *FileStore) Load(userAddress string) (Fixture, error) {
	content, err := os.ReadFile(filepath.Join(s.Dir, FileName(userAddress)))
	if err != nil {
		return Fixture{}, err
	}

	var f Fixture
	if err := json.Unmarshal(content, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}
