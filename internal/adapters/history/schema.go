package history

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	Imports []entrySchema `toml:"imports"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported import history schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

type entrySchema struct {
	At        string   `toml:"at"`
	Source    string   `toml:"source"`
	Succeeded int      `toml:"succeeded"`
	Failed    int      `toml:"failed"`
	Messages  []string `toml:"messages,omitempty"`
}
