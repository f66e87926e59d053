package emu

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"
	"github.com/pkg/errors"

	"avrsim/emu/log"
	"avrsim/hw/device"
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Trace  TraceConfig  `toml:"trace"`
	Device DeviceConfig `toml:"device"`
}

type LogConfig struct {
	// Modules lists the modules for which debug records are enabled.
	Modules []string `toml:"modules"`
}

type TraceConfig struct {
	Format string `toml:"format"` // "text" or "json"
}

type DeviceConfig struct {
	Model  string  `toml:"model"`
	Vcc    float64 `toml:"vcc"`
	Period int64   `toml:"period"`
}

// DefaultConfig is used when no configuration file exists.
var DefaultConfig = Config{
	Trace: TraceConfig{Format: "text"},
	Device: DeviceConfig{
		Model:  "attiny85",
		Vcc:    5.0,
		Period: 1,
	},
}

// ConfigDir returns the avrsim config directory, creating it if needed.
var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("avrsim")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the avrsim config
// directory, or returns DefaultConfig.
func LoadConfigOrDefault() Config {
	cfg, err := LoadConfig(filepath.Join(ConfigDir(), cfgFilename))
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			log.ModEmu.WarnZ("ignoring config file").Error("err", err).End()
		}
		return DefaultConfig
	}
	return cfg
}

// LoadConfig reads the configuration at path. Missing settings take their
// value from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return DefaultConfig, errors.Wrapf(err, "config %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return DefaultConfig, errors.Errorf("config %s: unknown key %s", path, undec[0])
	}
	if err := cfg.validate(); err != nil {
		return DefaultConfig, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch cfg.Trace.Format {
	case "text", "json":
	default:
		return errors.Errorf("invalid trace format %q", cfg.Trace.Format)
	}
	for _, name := range cfg.Log.Modules {
		if _, ok := log.ModuleByName(name); !ok {
			return errors.Errorf("unknown log module %s", name)
		}
	}
	if _, ok := device.Models[cfg.Device.Model]; !ok {
		return errors.Errorf("unknown device model %q", cfg.Device.Model)
	}
	return nil
}

// LogMask returns the mask of the modules listed in the log section.
func (cfg Config) LogMask() log.ModuleMask {
	var mask log.ModuleMask
	for _, name := range cfg.Log.Modules {
		if mod, ok := log.ModuleByName(name); ok {
			mask |= mod.Mask()
		}
	}
	return mask
}

// SaveConfig into avrsim config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(ConfigDir(), cfgFilename), buf, 0644)
}
