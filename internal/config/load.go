package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/headlamp-run/headlamp/internal/headlamperr"
)

// Load discovers a config file upward from startDir, parses it, validates
// it against the embedded schema, and merges it over Default(). If no
// config file is found, Load returns Default() with an empty path and no
// error — headlamp runs zero-config by design.
func Load(startDir string) (Config, string, error) {
	path, found, err := Discover(startDir)
	if err != nil {
		return Config{}, "", fmt.Errorf("discover config: %w", err)
	}

	if !found {
		return Default(), "", nil
	}

	cfg, err := loadFile(path)
	if err != nil {
		return Config{}, path, err
	}

	return cfg, path, nil
}

func loadFile(path string) (Config, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	if ext == "js" || ext == "ts" {
		return Config{}, fmt.Errorf(
			"%w: %s: typed JS/TS config files require a JavaScript runtime, which headlamp does not embed; "+
				"emit headlamp.config.json instead",
			headlamperr.ErrConfigParse, path)
	}

	raw, err := os.ReadFile(path) //nolint:gosec // path comes from an upward directory walk the user controls
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrConfigParse, path, err)
	}

	normalized, viperType, err := normalize(ext, raw)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrConfigParse, path, err)
	}

	jsonDoc, err := toJSON(normalized, viperType)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrConfigParse, path, err)
	}

	validateErr := ValidateDocument(jsonDoc)
	if validateErr != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrConfigParse, path, validateErr)
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigType("json")

	readErr := v.ReadConfig(strings.NewReader(string(jsonDoc)))
	if readErr != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrConfigParse, path, readErr)
	}

	unmarshalErr := v.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", headlamperr.ErrConfigParse, path, unmarshalErr)
	}

	return cfg, nil
}

// normalize returns (content, viperConfigType) where content is ready for
// the named decoder. json5 is rewritten to plain json; every other
// extension passes through untouched for its own format decoder.
func normalize(ext string, raw []byte) ([]byte, string, error) {
	switch ext {
	case "json5":
		return StripJSON5(raw), "json", nil
	case "json":
		return raw, "json", nil
	case "yaml", "yml":
		return raw, "yaml", nil
	case "toml":
		return raw, "toml", nil
	default:
		return raw, "json", nil
	}
}

// toJSON decodes content in the named format and re-encodes it as JSON, so
// ValidateDocument only ever deals with one wire format regardless of the
// source file's type. TOML is decoded with BurntSushi/toml directly (not
// viper's own TOML codec) so the config loader exercises it as its own
// dependency rather than indirectly through viper's codec selection.
func toJSON(content []byte, format string) ([]byte, error) {
	if format == "json" {
		if len(strings.TrimSpace(string(content))) == 0 {
			return []byte("{}"), nil
		}

		var probe any

		err := json.Unmarshal(content, &probe)
		if err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}

		return content, nil
	}

	if format == "toml" {
		var doc map[string]any

		_, err := toml.Decode(string(content), &doc)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}

		out, marshalErr := json.Marshal(doc)
		if marshalErr != nil {
			return nil, fmt.Errorf("re-encode toml as json: %w", marshalErr)
		}

		return out, nil
	}

	v := viper.New()
	v.SetConfigType(format)

	err := v.ReadConfig(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	out, err := json.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("re-encode as json: %w", err)
	}

	return out, nil
}
