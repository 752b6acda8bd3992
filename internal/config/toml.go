package config

import (
	"io"

	"github.com/pelletier/go-toml/v2"
)

// tomlEncode serializes cfg as TOML. Viper (backed by BurntSushi/toml) is
// used for decoding on load; go-toml/v2 is used here for encoding on save,
// since BurntSushi's encoder has weaker struct-tag support than pelletier's.
func tomlEncode(w io.Writer, cfg *Config) error {
	enc := toml.NewEncoder(w)
	enc.SetTagName("mapstructure")
	return enc.Encode(cfg)
}
