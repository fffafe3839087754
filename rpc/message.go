package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ParseMessage parses a single line of input.
func ParseMessage(buf []byte) (*Message, error) {
	if !gjson.ValidBytes(buf) {
		return nil, errors.Wrapf(ErrInvalidMessage, "malformed JSON: %.64q", buf)
	}
	r := gjson.ParseBytes(buf)
	if !r.IsObject() {
		return nil, errors.Wrapf(ErrInvalidMessage, "not an object: %.64q", buf)
	}

	var m Message
	if id := r.Get("id"); id.Exists() && id.Type != gjson.Null {
		if id.Type != gjson.Number {
			return nil, errors.Wrapf(ErrInvalidMessage, "non numeric id %s", id.Raw)
		}
		v := id.Int()
		m.ID = &v
	}
	if method := r.Get("method"); method.Exists() {
		m.Method = method.String()
	}
	if params := r.Get("params"); params.Exists() {
		m.Params = json.RawMessage(params.Raw)
	}
	if result := r.Get("result"); result.Exists() {
		m.Result = json.RawMessage(result.Raw)
	}
	if e := r.Get("error"); e.Exists() {
		m.Error = json.RawMessage(e.Raw)
	}

	if m.Method == "" && m.ID == nil {
		return nil, errors.Wrapf(ErrInvalidMessage, "neither method nor id: %.64q", buf)
	}
	return &m, nil
}

// IsRequest returns true if the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification returns true if the message does not expect a response.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// IsResponse returns true if the message is a response to a call.
func (m *Message) IsResponse() bool {
	return m.Method == "" && m.ID != nil
}

// DecodeParams unmarshals the parameters into v.
func (m *Message) DecodeParams(v interface{}) error {
	if len(m.Params) == 0 || gjson.ParseBytes(m.Params).Type == gjson.Null {
		return nil
	}
	if err := json.Unmarshal(m.Params, v); err != nil {
		return errors.Wrapf(err, "failed to decode params for %s", m.Method)
	}
	return nil
}

// Param returns the value at path in the parameters, using gjson syntax.
func (m *Message) Param(path string) gjson.Result {
	return gjson.GetBytes(m.Params, path)
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error calling %s (code %d): %s", e.Method, e.Code, e.Message)
}

func remoteError(method string, raw json.RawMessage) *RemoteError {
	r := gjson.ParseBytes(raw)
	if r.Type == gjson.String {
		return &RemoteError{Method: method, Message: r.String()}
	}
	return &RemoteError{
		Method:  method,
		Code:    r.Get("code").Int(),
		Message: r.Get("message").String(),
	}
}

// encodeRequest builds a request, or a notification if id is nil.
func encodeRequest(id *int64, method string, params interface{}) ([]byte, error) {
	buf, err := sjson.SetBytes([]byte(`{}`), "method", method)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set method")
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode params for %s", method)
		}
		if buf, err = sjson.SetRawBytes(buf, "params", raw); err != nil {
			return nil, errors.Wrap(err, "failed to set params")
		}
	}
	if id != nil {
		if buf, err = sjson.SetBytes(buf, "id", *id); err != nil {
			return nil, errors.Wrap(err, "failed to set id")
		}
	}
	return buf, nil
}

// encodeResponse builds the response to request id. If rerr is non-nil, an
// error response is built instead.
func encodeResponse(id int64, result interface{}, rerr error) ([]byte, error) {
	buf, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set id")
	}
	if rerr != nil {
		buf, err = sjson.SetBytes(buf, "error", map[string]interface{}{
			"code":    -32000,
			"message": rerr.Error(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to set error")
		}
		return buf, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode result")
	}
	if buf, err = sjson.SetRawBytes(buf, "result", raw); err != nil {
		return nil, errors.Wrap(err, "failed to set result")
	}
	return buf, nil
}
