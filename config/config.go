// Package config 读取保存命令行默认值的 TOML 配置文件
package config

import (
	"fmt"
	"strings"

	"dwarfreorg/layout"

	"github.com/BurntSushi/toml"
)

type Config struct {
	MaxPasses     int      `toml:"max_passes"`
	BitNumbering  string   `toml:"bit_numbering"`
	ShowHolesOnly bool     `toml:"show_holes_only"`
	Exclude       []string `toml:"exclude"`
	Color         string   `toml:"color"`
	Jobs          int      `toml:"jobs"`
}

func Default() Config {
	return Config{
		MaxPasses:    layout.DefaultMaxPasses,
		BitNumbering: layout.MSBFirst.String(),
		Color:        "auto",
	}
}

// Load 在 Default 的基础上解析 path, 未知的键视为错误
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) != 0 {
		keys := make([]string, 0, len(undec))
		for _, k := range undec {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxPasses < 0 {
		return fmt.Errorf("max_passes must not be negative, got %d", c.MaxPasses)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	if _, err := c.Numbering(); err != nil {
		return err
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

func (c Config) Numbering() (layout.BitNumbering, error) {
	return layout.ParseBitNumbering(c.BitNumbering)
}
