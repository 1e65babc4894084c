package gazelle

import (
	"encoding/json"
	"strings"

	"gazellekit/internal"
)

// OutcomeKind tags the shape of a classified tracker response
type OutcomeKind int

const (
	// OutcomeSuccess is a JSON envelope with status "success"
	OutcomeSuccess OutcomeKind = iota
	// OutcomeBinary is a raw torrent payload
	OutcomeBinary
	// OutcomeOpaque is a non-JSON, non-torrent body, typically an HTML
	// page reached via redirect. The cookie login and upload paths signal
	// success through the final URL rather than an envelope.
	OutcomeOpaque
)

// Outcome is a classified tracker response. Exactly the fields matching
// Kind are populated.
type Outcome struct {
	Kind     OutcomeKind
	Payload  json.RawMessage // OutcomeSuccess: the envelope's "response" field
	Bytes    []byte          // OutcomeBinary: the raw body, unchanged
	FinalURL string          // OutcomeOpaque
	BodyText string          // OutcomeOpaque
}

// envelope is the JSON success/failure wrapper both trackers use
type envelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error"`
}

// Interpret classifies a raw transport response. Classification is
// response-shape-driven: the two tracker families return structurally
// different bodies for the same logical action, so the request alone
// cannot predict the shape.
//
// Priority order:
//  1. body parses as a JSON object: "success" yields the response field,
//     "failure" yields the tracker's error message as a request failure,
//     anything else is treated as malformed-but-structured and fails with
//     the whole body.
//  2. non-JSON body with a torrent content type yields the bytes unchanged.
//  3. otherwise an HTTP error status propagates as a transport error, and
//     a 2xx body is returned opaque with its final URL for callers that
//     inspect redirect targets.
func Interpret(resp *internal.Response) (*Outcome, error) {
	var env envelope
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err == nil {
		if err := json.Unmarshal(resp.Body, &env); err == nil {
			switch env.Status {
			case "success":
				return &Outcome{Kind: OutcomeSuccess, Payload: env.Response}, nil
			case "failure":
				return nil, internal.NewRequestFailure(env.Error)
			}
		}
		return nil, internal.NewRequestFailure(string(resp.Body))
	}

	if strings.Contains(resp.ContentType(), "application/x-bittorrent") {
		return &Outcome{Kind: OutcomeBinary, Bytes: resp.Body}, nil
	}

	if resp.StatusCode >= 400 {
		return nil, internal.NewTransportError(resp.StatusCode, "no json, no torrent")
	}

	return &Outcome{
		Kind:     OutcomeOpaque,
		FinalURL: resp.FinalURL,
		BodyText: string(resp.Body),
	}, nil
}
