package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/xi-editor/xi-plugin-go/internal/util"
)

// Config holds all the data that can be configured in the
// external configuration file
type Config struct {
	// FetchSize is how many bytes buffer caches ask the core for at a
	// time. Zero means the default.
	FetchSize int `json:"FetchSize" yaml:"FetchSize"`

	// Plugin names the plugin to run when none is given on the command
	// line.
	Plugin string `json:"Plugin" yaml:"Plugin"`

	WordCheck WordCheckConfig `json:"WordCheck" yaml:"WordCheck"`

	// Brackets maps opening characters to the text the bracket closer
	// inserts after them, on top of DefaultBrackets.
	Brackets map[string]string `json:"Brackets" yaml:"Brackets"`
}

// WordCheckConfig configures the word checking plugin.
type WordCheckConfig struct {
	// Words are known to be correct.
	Words []string `json:"Words" yaml:"Words"`

	// WordFile is read for more words, one per line.
	WordFile string `json:"WordFile" yaml:"WordFile"`

	// Highlight is how unknown words are marked, e.g. ["underline", "red"]
	Highlight Highlight `json:"Highlight" yaml:"Highlight"`
}

// DefaultPlugin is run when neither the command line nor the config file
// names one.
const DefaultPlugin = "shouty"

// DefaultBrackets are closed when the config does not say otherwise.
var DefaultBrackets = map[string]string{
	"(": ")",
	"[": "]",
	"{": "}",
}

var homedirFunc = util.Homedir

// Init initializes the Config with default values
func (c *Config) Init() error {
	c.Plugin = DefaultPlugin
	c.WordCheck.Highlight.Init()
	return nil
}

// ReadFilename reads the config from the given file, and
// does the appropriate processing, if any
func (c *Config) ReadFilename(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer f.Close()

	switch ext := filepath.Ext(filename); ext {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(c)
		if err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		err = json.NewDecoder(f).Decode(c)
		if err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	}

	return c.Validate()
}

// Validate checks values that cannot be caught while decoding.
func (c *Config) Validate() error {
	if c.FetchSize < 0 {
		return fmt.Errorf("invalid FetchSize %d: must not be negative", c.FetchSize)
	}
	for open := range c.Brackets {
		if open == "" {
			return errors.New("invalid Brackets: empty opening bracket")
		}
	}
	return nil
}

// BracketPairs returns DefaultBrackets merged with the configured ones.
func (c *Config) BracketPairs() map[string]string {
	pairs := make(map[string]string, len(DefaultBrackets)+len(c.Brackets))
	for open, closer := range DefaultBrackets {
		pairs[open] = closer
	}
	for open, closer := range c.Brackets {
		pairs[open] = closer
	}
	return pairs
}

// LoadWords returns the configured word list, plus the contents of WordFile
// if one is set.
func (w WordCheckConfig) LoadWords() ([]string, error) {
	words := append([]string(nil), w.Words...)
	if w.WordFile == "" {
		return words, nil
	}

	buf, err := os.ReadFile(w.WordFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read word file %s: %w", w.WordFile, err)
	}
	for _, word := range strings.Fields(string(buf)) {
		words = append(words, word)
	}
	return words, nil
}

// Locator locates a config file in a given directory.
type Locator interface {
	Locate(string) (string, error)
}

// LocatorFunc is a function that implements Locator.
type LocatorFunc func(string) (string, error)

// Locate calls the underlying function.
func (f LocatorFunc) Locate(dir string) (string, error) {
	return f(dir)
}

var configFilenames = []string{"config.json", "config.yaml", "config.yml"}

// DefaultConfigLocator searches for a config file with one of the known
// filenames (config.json, config.yaml, config.yml) in the given directory.
var DefaultConfigLocator = LocatorFunc(func(dir string) (string, error) {
	for _, basename := range configFilenames {
		file := filepath.Join(dir, basename)
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
	}
	return "", fmt.Errorf("config file not found in %s", dir)
})

const appDir = "xi-plugin"

// LocateRcfile attempts to find the config file in various locations
func LocateRcfile(locater Locator) (string, error) {
	// http://standards.freedesktop.org/basedir-spec/basedir-spec-latest.html
	//
	// Try in this order:
	//	  $XDG_CONFIG_HOME/xi-plugin/config.{json,yaml,yml}
	//    $XDG_CONFIG_DIR/xi-plugin/config.{json,yaml,yml} (where XDG_CONFIG_DIR is listed in $XDG_CONFIG_DIRS)
	//	  ~/.xi-plugin/config.{json,yaml,yml}

	home, uErr := homedirFunc()

	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		if file, err := locater.Locate(filepath.Join(dir, appDir)); err == nil {
			return file, nil
		}
	} else if uErr == nil { // silently ignore failure for homedir()
		if file, err := locater.Locate(filepath.Join(home, ".config", appDir)); err == nil {
			return file, nil
		}
	}

	if dirs := os.Getenv("XDG_CONFIG_DIRS"); dirs != "" {
		for _, dir := range strings.Split(dirs, fmt.Sprintf("%c", filepath.ListSeparator)) {
			if file, err := locater.Locate(filepath.Join(dir, appDir)); err == nil {
				return file, nil
			}
		}
	}

	if uErr == nil {
		if file, err := locater.Locate(filepath.Join(home, "."+appDir)); err == nil {
			return file, nil
		}
	}

	return "", errors.New("config file not found")
}
