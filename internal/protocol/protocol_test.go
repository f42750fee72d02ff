package protocol

import (
	"encoding/json"
	"testing"
)

func TestRequestEnvelopeDecode(t *testing.T) {
	raw := []byte(`{"endpoint":"/add","params":{"content":"hello","category":"note"}}`)

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Endpoint != EndpointAdd {
		t.Fatalf("Endpoint = %q, want %q", req.Endpoint, EndpointAdd)
	}

	var params AddParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("Unmarshal params: %v", err)
	}
	if params.Content != "hello" || params.Category != "note" {
		t.Fatalf("params = %+v, want content=hello category=note", params)
	}
}

func TestErrorResponseEncode(t *testing.T) {
	resp := NewErrorResponse(errTest("boom"))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"success":false,"error":"boom"}`
	if string(raw) != want {
		t.Fatalf("Marshal = %s, want %s", raw, want)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
