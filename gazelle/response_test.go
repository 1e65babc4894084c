package gazelle

import (
	"bytes"
	"net/http"
	"testing"

	"gazellekit/internal"
)

func htmlResponse(status int, finalURL, body string) *internal.Response {
	return &internal.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(body),
		FinalURL:   finalURL,
	}
}

func jsonResponse(body string) *internal.Response {
	return &internal.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

// TestInterpret_SuccessEnvelope tests that a success envelope yields the
// response field
func TestInterpret_SuccessEnvelope(t *testing.T) {
	outcome, err := Interpret(jsonResponse(`{"status":"success","response":{"a":1}}`))
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %v", outcome.Kind)
	}
	if string(outcome.Payload) != `{"a":1}` {
		t.Fatalf("Unexpected payload: %s", outcome.Payload)
	}
}

// TestInterpret_FailureEnvelope tests that a failure envelope raises a
// request failure carrying the tracker's message
func TestInterpret_FailureEnvelope(t *testing.T) {
	_, err := Interpret(jsonResponse(`{"status":"failure","error":"bad"}`))
	if err == nil {
		t.Fatalf("Expected request failure")
	}
	if !internal.IsType(err, internal.ErrRequestFailure) {
		t.Fatalf("Expected RequestFailure, got: %v", err)
	}
	ge := err.(*internal.GazelleError)
	if ge.Message != "bad" {
		t.Fatalf("Expected message %q, got %q", "bad", ge.Message)
	}
}

// TestInterpret_MalformedEnvelope tests that a JSON object without a
// recognized status fails with the whole body
func TestInterpret_MalformedEnvelope(t *testing.T) {
	body := `{"status":"weird","data":1}`
	_, err := Interpret(jsonResponse(body))
	if err == nil {
		t.Fatalf("Expected request failure")
	}
	if !internal.IsType(err, internal.ErrRequestFailure) {
		t.Fatalf("Expected RequestFailure, got: %v", err)
	}
	ge := err.(*internal.GazelleError)
	if ge.Message != body {
		t.Fatalf("Expected whole body as message, got %q", ge.Message)
	}
}

// TestInterpret_BinaryRoundTrip tests that a torrent payload comes back
// byte for byte unchanged
func TestInterpret_BinaryRoundTrip(t *testing.T) {
	payload := []byte("d8:announce3:urle")
	resp := &internal.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/x-bittorrent"}},
		Body:       payload,
	}

	outcome, err := Interpret(resp)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if outcome.Kind != OutcomeBinary {
		t.Fatalf("Expected binary outcome, got %v", outcome.Kind)
	}
	if !bytes.Equal(outcome.Bytes, payload) {
		t.Fatalf("Binary payload was modified: %q", outcome.Bytes)
	}
}

// TestInterpret_OpaqueRedirect tests that a non-JSON 2xx body is
// returned opaque with its final URL
func TestInterpret_OpaqueRedirect(t *testing.T) {
	outcome, err := Interpret(htmlResponse(200, "https://example.org/torrents.php?id=7", "<html></html>"))
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if outcome.Kind != OutcomeOpaque {
		t.Fatalf("Expected opaque outcome, got %v", outcome.Kind)
	}
	if outcome.FinalURL != "https://example.org/torrents.php?id=7" {
		t.Fatalf("Unexpected final URL: %s", outcome.FinalURL)
	}
	if outcome.BodyText != "<html></html>" {
		t.Fatalf("Unexpected body text: %s", outcome.BodyText)
	}
}

// TestInterpret_TransportError tests that a non-JSON error status
// propagates as a transport error
func TestInterpret_TransportError(t *testing.T) {
	_, err := Interpret(htmlResponse(502, "https://example.org/ajax.php", "Bad Gateway"))
	if err == nil {
		t.Fatalf("Expected transport error")
	}
	if !internal.IsType(err, internal.ErrTransport) {
		t.Fatalf("Expected Transport error, got: %v", err)
	}
	ge := err.(*internal.GazelleError)
	if ge.StatusCode != 502 {
		t.Fatalf("Expected status 502, got %d", ge.StatusCode)
	}
}

// TestInterpret_StructuredFailureBeatsStatusCode tests that a failure
// envelope on an error status is still classified by its body
func TestInterpret_StructuredFailureBeatsStatusCode(t *testing.T) {
	resp := &internal.Response{
		StatusCode: 400,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"status":"failure","error":"bad parameters"}`),
	}

	_, err := Interpret(resp)
	if !internal.IsType(err, internal.ErrRequestFailure) {
		t.Fatalf("Expected RequestFailure, got: %v", err)
	}
}
