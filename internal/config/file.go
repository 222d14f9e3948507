package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// LoadFile reads an optional TOML config file at path. A missing file is
// not an error — it's the common case when the server runs entirely off
// env vars / flags — but a malformed file is.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fc, nil
	}
	_, err := toml.DecodeFile(path, &fc)
	return fc, err
}
