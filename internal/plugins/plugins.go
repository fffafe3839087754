// Package plugins holds the example plugins shipped with the xi-plugin
// command.
package plugins

import (
	"io"
	"slices"

	"github.com/pkg/errors"
	xiplugin "github.com/xi-editor/xi-plugin-go"
	"github.com/xi-editor/xi-plugin-go/config"
)

// ErrPluginNotFound is returned when a name does not match any registered
// plugin.
var ErrPluginNotFound = errors.New("specified plugin was not found")

// Constructor creates a plugin from the configuration. Plugins log to w.
type Constructor func(cfg *config.Config, w io.Writer) (xiplugin.Plugin, error)

// Registry maps plugin names to their constructors.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates a Registry holding every plugin in this package.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Add(ShoutyName, func(_ *config.Config, w io.Writer) (xiplugin.Plugin, error) {
		return NewShouty(w), nil
	})
	r.Add(BracketCloserName, func(cfg *config.Config, w io.Writer) (xiplugin.Plugin, error) {
		return NewBracketCloser(cfg.BracketPairs(), w), nil
	})
	r.Add(WordCheckName, func(cfg *config.Config, w io.Writer) (xiplugin.Plugin, error) {
		words, err := cfg.WordCheck.LoadWords()
		if err != nil {
			return nil, err
		}
		return NewWordCheck(words, cfg.WordCheck.Highlight, w), nil
	})
	r.Add(EchoName, func(_ *config.Config, w io.Writer) (xiplugin.Plugin, error) {
		return NewEcho(w), nil
	})
	return r
}

// Add registers a constructor, replacing any under the same name.
func (r *Registry) Add(name string, c Constructor) {
	r.constructors[name] = c
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates the plugin registered under name.
func (r *Registry) New(name string, cfg *config.Config, w io.Writer) (xiplugin.Plugin, error) {
	c, ok := r.constructors[name]
	if !ok {
		return nil, errors.Wrapf(ErrPluginNotFound, "%q", name)
	}
	p, err := c(cfg, w)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create plugin %s", name)
	}
	return p, nil
}
