package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/util"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"

	envConfigDir = "RESTBENCH_CONFIG_DIR"
)

type SettingsFormat string

type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

// Dir resolves the configuration directory, honouring RESTBENCH_CONFIG_DIR.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envConfigDir)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "restbench")
	}
	return filepath.Join(".", ".restbench")
}

// LoadSettings tries TOML first, then JSON, then falls back to defaults if
// neither exists. Parse errors fail immediately but missing files just skip
// to the next format.
func LoadSettings(dir string) (Settings, SettingsHandle, error) {
	if dir == "" {
		dir = Dir()
	}
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, "settings.toml"), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, "settings.json"), Format: SettingsFormatJSON},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				errdef.Wrap(errdef.CodeFilesystem, err, "read settings %q", candidate.Path),
			)
			continue
		}

		partial, err := DecodeSettings(data, candidate.Format)
		if err != nil {
			return Settings{}, SettingsHandle{}, errdef.Wrap(
				errdef.CodeConfig,
				err,
				"parse settings %q",
				candidate.Path,
			)
		}
		settings := WithDefaults(partial)
		if settings.Version > CurrentVersion {
			return Settings{}, SettingsHandle{}, errdef.New(
				errdef.CodeConfig,
				"settings %q use version %d, newest supported is %d",
				candidate.Path,
				settings.Version,
				CurrentVersion,
			)
		}
		return settings, candidate, nil
	}

	if accumulated != nil {
		return Settings{}, SettingsHandle{}, accumulated
	}
	return WithDefaults(Partial{}), candidates[0], nil
}

// DecodeSettings rejects unknown keys in both formats so typos surface.
func DecodeSettings(data []byte, format SettingsFormat) (Partial, error) {
	var p Partial
	switch format {
	case SettingsFormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Partial{}, err
		}
	case SettingsFormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Partial{}, err
		}
	default:
		return Partial{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return p, nil
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	path := handle.Path
	format := handle.Format
	if path == "" {
		path = filepath.Join(Dir(), "settings.toml")
	}
	if format == "" {
		format = SettingsFormatTOML
	}

	var (
		data []byte
		err  error
	)
	partial := settings.ToPartial()
	switch format {
	case SettingsFormatTOML:
		data, err = toml.Marshal(partial)
	case SettingsFormatJSON:
		data, err = json.MarshalIndent(partial, "", "  ")
	default:
		return errdef.New(errdef.CodeConfig, "unsupported settings format %q", format)
	}
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}

	if err := util.WriteFileAtomic(path, data, 0o600); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings %q", path)
	}
	return nil
}
