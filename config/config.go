package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// Validatable is implemented by config types that check themselves before
// being installed.
type Validatable interface {
	Validate() error
}

// ClientApplier is implemented by config types that accept editor-supplied
// settings (initializationOptions, workspace/didChangeConfiguration) on top
// of the file layer. raw is the JSON the client sent.
type ClientApplier interface {
	ApplyClientSettings(raw []byte) error
}

// LoadTOML decodes path over a copy of defaults. A missing file yields a
// copy of defaults. Keys the file does not mention keep their default.
func LoadTOML[T any](path string, defaults *T) (*T, error) {
	cfg := new(T)
	if defaults != nil {
		*cfg = *defaults
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown key %q", path, undecoded[0].String())
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg any) error {
	if v, ok := cfg.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
