// Package edit describes changes made to a buffer: the updates the core
// notifies plugins of, and the edits plugins send back.
package edit

import (
	"fmt"

	"github.com/pkg/errors"
)

// Edit priorities. Edits with a higher priority are applied after
// concurrent edits with a lower one.
const (
	PriorityLow    = 0x1000
	PriorityNormal = 0x10000
	PriorityHigh   = 0x1000000
)

// ErrLengthMismatch is returned by Update.Validate when the text does not
// have the declared length.
var ErrLengthMismatch = errors.New("update text length mismatch")

// Update is the notification sent when a buffer has been edited: the
// bytes in [Start, End) were replaced by Text, producing revision Rev.
type Update struct {
	ViewID   string `json:"view_id"`
	Author   string `json:"author"`
	Rev      int    `json:"rev"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	NewLen   int    `json:"new_len"`
	EditType string `json:"edit_type"`
	Text     string `json:"text,omitempty"`
}

// Validate checks that the update is well formed.
func (u Update) Validate() error {
	if len(u.Text) != u.NewLen {
		return errors.Wrapf(ErrLengthMismatch, "rev %d: text is %d bytes, new_len is %d", u.Rev, len(u.Text), u.NewLen)
	}
	if u.Start < 0 || u.Start > u.End {
		return errors.Errorf("rev %d: invalid range [%d, %d)", u.Rev, u.Start, u.End)
	}
	return nil
}

// Delta returns the change in buffer length caused by the update.
func (u Update) Delta() int {
	return (u.Start - u.End) + u.NewLen
}

// IsInsert returns true if the update only added text.
func (u Update) IsInsert() bool {
	return u.Start == u.End && u.NewLen > 0
}

// IsDelete returns true if the update only removed text.
func (u Update) IsDelete() bool {
	return u.Start < u.End && u.NewLen == 0
}

func (u Update) String() string {
	return fmt.Sprintf("Update(rev=%d, [%d, %d) -> %q, author=%s)", u.Rev, u.Start, u.End, u.Text, u.Author)
}

// Edit is a change a plugin asks the core to make. Rev is the revision the
// edit was computed against.
type Edit struct {
	Rev         int    `json:"rev"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Text        string `json:"text"`
	Author      string `json:"author"`
	Priority    int    `json:"priority"`
	AfterCursor bool   `json:"after_cursor"`
}

// NewReplace creates an Edit replacing [start, end) with text.
func NewReplace(author string, rev, start, end int, text string) *Edit {
	return &Edit{
		Rev:      rev,
		Start:    start,
		End:      end,
		Text:     text,
		Author:   author,
		Priority: PriorityNormal,
	}
}

// NewInsert creates an Edit inserting text at offset.
func NewInsert(author string, rev, offset int, text string) *Edit {
	return NewReplace(author, rev, offset, offset, text)
}

// WithPriority sets the priority of the edit.
func (e *Edit) WithPriority(p int) *Edit {
	e.Priority = p
	return e
}

// WithAfterCursor marks the edit as landing to the right of the cursor.
func (e *Edit) WithAfterCursor(b bool) *Edit {
	e.AfterCursor = b
	return e
}

func (e Edit) String() string {
	if e.Start == e.End {
		return fmt.Sprintf("Insert(%d, %q)", e.Start, e.Text)
	}
	if e.Text == "" {
		return fmt.Sprintf("Delete[%d, %d)", e.Start, e.End)
	}
	return fmt.Sprintf("Replace[%d, %d) with %q", e.Start, e.End, e.Text)
}
