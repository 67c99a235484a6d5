package bridge

import "encoding/json"

// Command is one outbound request to the extension peer. Immutable once sent.
type Command struct {
	ID     string         `json:"id"`
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// Response is the peer's reply to a command, matched by correlation ID.
type Response struct {
	ID      string         `json:"id"`
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Outcome converts the wire response into the caller-facing outcome.
func (r Response) Outcome() Outcome {
	if r.Success {
		return Success(r.Result)
	}
	return Failure(r.Error)
}

// FrameKind tags a decoded inbound frame.
type FrameKind string

const (
	FrameMalformed FrameKind = "malformed"
	FrameHandshake FrameKind = "handshake"
	FrameResponse  FrameKind = "response"
)

// Frame is the decoded form of one inbound message. Exactly one of the
// payload fields is meaningful, selected by Kind. Raw always holds the
// original bytes so malformed frames can be logged.
type Frame struct {
	Kind      FrameKind
	Handshake map[string]any
	Response  Response
	Raw       []byte
}

// EncodeCommand serializes a command into a wire frame. Params values must
// be JSON-marshalable; anything else is a programming error reported to the
// caller.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd.Params == nil {
		cmd.Params = map[string]any{}
	}
	return json.Marshal(cmd)
}

// DecodeFrame classifies and decodes one inbound frame. It never fails:
// undecodable or unrecognized input comes back as a malformed frame for the
// caller to log and drop.
func DecodeFrame(data []byte) Frame {
	var probe struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Frame{Kind: FrameMalformed, Raw: data}
	}

	if probe.Type == "handshake" {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return Frame{Kind: FrameMalformed, Raw: data}
		}
		return Frame{Kind: FrameHandshake, Handshake: fields, Raw: data}
	}

	if probe.ID != "" {
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return Frame{Kind: FrameMalformed, Raw: data}
		}
		return Frame{Kind: FrameResponse, Response: resp, Raw: data}
	}

	return Frame{Kind: FrameMalformed, Raw: data}
}
