package wire

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode_Event(t *testing.T) {
	data := []byte(`{
		"type": "event",
		"event": {
			"type": "touchstart",
			"target": {"identity": "4", "kind": 1, "tagName": "DIV"},
			"bubbles": true,
			"touches": [{"identity": "7", "identifier": 0, "clientX": 10}],
			"changedTouches": [{"identifier": 1}]
		}
	}`)

	m, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Type.Kind() != KindEvent {
		t.Fatalf("Kind = %v, want event", m.Type.Kind())
	}
	want := &EventPayload{
		Type:           "touchstart",
		Target:         Ref{Identity: "4", TagName: "DIV"},
		Bubbles:        true,
		Touches:        []TouchPayload{{Identity: "7", ClientX: 10}},
		ChangedTouches: []TouchPayload{{Identifier: 1}},
	}
	if diff := cmp.Diff(want, m.Event); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestRef_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want Ref
	}{
		{`"12"`, Ref{Identity: "12"}},
		{`{"identity":"3"}`, Ref{Identity: "3"}},
		{`{"identity":"1","tagName":"BODY"}`, Ref{Identity: "1", TagName: "BODY"}},
		{`null`, Ref{}},
	}
	for _, c := range cases {
		var got Ref
		if err := json.Unmarshal([]byte(c.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", c.in, got, c.want)
		}
	}

	var r Ref
	if err := json.Unmarshal([]byte(`42`), &r); err == nil {
		t.Fatal("numeric reference: want error")
	}
}

func TestRef_MarshalEmptyIsNull(t *testing.T) {
	data, err := json.Marshal(EventPayload{Type: "click"})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"type":"click","target":null}` {
		t.Fatalf("got %s", got)
	}
}

func TestDecodeAll(t *testing.T) {
	ms, err := DecodeAll([]byte(` [{"type":"init","url":"https://x","width":400},{"type":"return","return":{"op":1}}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d messages, want 2", len(ms))
	}
	if ms[0].URL != "https://x" || ms[0].Width != 400 {
		t.Errorf("init = %+v", ms[0])
	}
	if string(ms[1].Return) != `{"op":1}` {
		t.Errorf("return payload = %s", ms[1].Return)
	}

	one, err := DecodeAll([]byte(`{"type":"bogus"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 1 || one[0].Type.Kind() != KindUnknown {
		t.Fatalf("single object: %+v", one)
	}

	if _, err := DecodeAll([]byte(`{`)); err == nil {
		t.Fatal("truncated input: want error")
	}
}

func TestEncode_MutationBatch(t *testing.T) {
	msg := MutationBatch([]ChangeRecord{{
		Type:       "childList",
		Target:     &Node{Identity: "1", TagName: BodyTagName},
		AddedNodes: []*Node{{Identity: "2", Kind: CommentNode, Data: "x"}},
	}})
	data, err := Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"MutationRecord","mutations":[{"type":"childList","target":{"identity":"1","tagName":"BODY"},"addedNodes":[{"identity":"2","kind":8,"data":"x"}]}]}`
	if string(data) != want {
		t.Fatalf("Encode:\n got %s\nwant %s", data, want)
	}
}

func TestTypeKind(t *testing.T) {
	for typ, want := range map[Type]Kind{
		TypeInit:           KindInit,
		TypeEvent:          KindEvent,
		TypeReturn:         KindReturn,
		TypeMutationRecord: KindUnknown,
		"":                 KindUnknown,
	} {
		if got := typ.Kind(); got != want {
			t.Errorf("%q.Kind() = %v, want %v", typ, got, want)
		}
	}
}
