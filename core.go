package xiplugin

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xi-editor/xi-plugin-go/edit"
	"github.com/xi-editor/xi-plugin-go/rpc"
	"github.com/xi-editor/xi-plugin-go/style"
)

// NewCoreProxy creates a CoreProxy talking to the core through peer.
func NewCoreProxy(peer *rpc.Peer, pluginID int) *CoreProxy {
	return &CoreProxy{
		peer:     peer,
		pluginID: pluginID,
	}
}

// PluginID returns the id the core assigned to this plugin.
func (c *CoreProxy) PluginID() int {
	return c.pluginID
}

// GetData fetches up to maxSize bytes of the view's buffer starting at
// offset, as of revision rev. This blocks until the core answers. It
// returns io.EOF if there is no data past offset.
func (c *CoreProxy) GetData(viewID string, offset, rev, maxSize int) (string, error) {
	var data *string
	err := c.peer.Call(coreGetData, map[string]interface{}{
		"view_id":   viewID,
		"plugin_id": c.pluginID,
		"offset":    offset,
		"max_size":  maxSize,
		"rev":       rev,
	}, &data)
	if err != nil {
		return "", errors.Wrapf(err, "get_data failed for %s at offset %d", viewID, offset)
	}
	if data == nil || *data == "" {
		return "", io.EOF
	}
	return *data, nil
}

// GetSelections returns the selections of a view.
func (c *CoreProxy) GetSelections(viewID string) ([]Selection, error) {
	var result struct {
		Selections [][2]int `json:"selections"`
	}
	err := c.peer.Call(coreGetSelections, map[string]interface{}{
		"view_id":   viewID,
		"plugin_id": c.pluginID,
	}, &result)
	if err != nil {
		return nil, errors.Wrapf(err, "get_selections failed for %s", viewID)
	}

	selections := make([]Selection, len(result.Selections))
	for i, s := range result.Selections {
		selections[i] = Selection{Start: s[0], End: s[1]}
	}
	return selections, nil
}

// UpdateSpans replaces the spans in [start, start+length) of the view.
// Span offsets are relative to start.
func (c *CoreProxy) UpdateSpans(viewID string, start, length int, spans []style.Span, rev int) error {
	return c.peer.Notify(coreUpdateSpans, map[string]interface{}{
		"view_id":   viewID,
		"plugin_id": c.pluginID,
		"start":     start,
		"len":       length,
		"spans":     spans,
		"rev":       rev,
	})
}

// AddScopes registers scopes with the core.
func (c *CoreProxy) AddScopes(viewID string, scopes [][]string) error {
	return c.peer.Notify(coreAddScopes, map[string]interface{}{
		"view_id":   viewID,
		"plugin_id": c.pluginID,
		"scopes":    scopes,
	})
}

// Edit asks the core to apply an edit to the view.
func (c *CoreProxy) Edit(viewID string, e *edit.Edit) error {
	return c.peer.Notify(coreEdit, map[string]interface{}{
		"view_id":   viewID,
		"plugin_id": c.pluginID,
		"edit":      e,
	})
}

// IsCaret returns true if the selection is empty.
func (s Selection) IsCaret() bool {
	return s.Start == s.End
}
