// Package rpc implements a minimal JSON-RPC peer that exchanges one JSON
// object per line. It only allows one outgoing call at a time: incoming
// messages received while waiting for a response are queued, and handled
// once the call returns.
package rpc

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned when the connection is gone.
	ErrClosed = errors.New("rpc peer closed")

	// ErrUnexpectedResponse is returned when a response arrives that
	// nobody is waiting for.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrInvalidMessage is returned when a line is not a valid message.
	ErrInvalidMessage = errors.New("invalid message")
)

// Handler handles incoming requests and notifications. For requests, the
// returned value is sent back as the result. Notifications must return a
// nil value.
type Handler interface {
	HandleRPC(*Peer, *Message) (interface{}, error)
}

// HandlerFunc is a function that implements Handler.
type HandlerFunc func(*Peer, *Message) (interface{}, error)

// HandleRPC calls the underlying function.
func (f HandlerFunc) HandleRPC(p *Peer, m *Message) (interface{}, error) {
	return f(p, m)
}

// Message is a request, a notification, or a response.
type Message struct {
	ID     *int64
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  json.RawMessage
}

// RemoteError is the error returned by the other side for a call.
type RemoteError struct {
	Method  string
	Code    int64
	Message string
}

// Peer is one end of the connection.
type Peer struct {
	handler  Handler
	in       *bufio.Reader
	out      io.Writer
	errlog   io.Writer
	incoming chan input
	done     chan struct{}
	stopOnce sync.Once
	readOnce sync.Once
	pending  []*Message
	nextID   int64
}

type input struct {
	buf []byte
	err error
}

// fatalError marks an error that must stop the peer.
type fatalError struct {
	error
}
