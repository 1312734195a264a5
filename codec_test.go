package riak

import (
	"strings"
	"testing"
)

func TestEncodeAdd(t *testing.T) {
	b, err := encodeAdd([]Document{
		{"id": "doc", "username": "tony", "age": 42, "tags": []string{"a", "b"}, "skip": nil},
		{"id": "x&y", "note": "<b>"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<add>` +
		`<doc><field name="id">doc</field><field name="age">42</field>` +
		`<field name="tags">a</field><field name="tags">b</field>` +
		`<field name="username">tony</field></doc>` +
		`<doc><field name="id">x&amp;y</field><field name="note">&lt;b&gt;</field></doc>` +
		`</add>`
	if string(b) != want {
		t.Errorf("encodeAdd:\ngot:  %s\nwant: %s", b, want)
	}
}

func TestEncodeDelete(t *testing.T) {
	b, err := encodeDelete(DeleteRequest{IDs: []string{"dizzy"}, Queries: []string{"username:russell"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<delete><id>dizzy</id><query>username:russell</query></delete>`
	if string(b) != want {
		t.Errorf("encodeDelete = %s, want %s", b, want)
	}
}

func TestFieldValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{true, "true"},
		{int64(-3), "-3"},
		{uint8(7), "7"},
		{float32(1.5), "1.5"},
		{0.1, "0.1"},
		{map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		got, err := fieldValue(tt.in)
		if err != nil {
			t.Errorf("fieldValue(%v): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("fieldValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := fieldValue(make(chan int)); err == nil {
		t.Error("expected error for channel value")
	}
}

func TestDecodeSelectJSON_RiakDocs(t *testing.T) {
	body := `{"responseHeader":{"status":0},"response":{"numFound":2,"start":0,"maxScore":"0.353553",
		"docs":[
			{"id":"dizzy","index":"searchbucket","fields":{"username":"dizzy"},"props":{}},
			{"id":"russell","index":"searchbucket","fields":{"username":"russell","tags":["a","b"]},"props":{}}
		]}}`
	res, err := decodeSelectJSON([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NumFound != 2 || res.Len() != 2 {
		t.Fatalf("numFound=%d len=%d", res.NumFound, res.Len())
	}
	if res.MaxScore != 0.353553 {
		t.Errorf("maxScore = %v", res.MaxScore)
	}
	if res.Docs[0].ID() != "dizzy" || res.Docs[0]["username"] != "dizzy" {
		t.Errorf("doc[0] = %v", res.Docs[0])
	}
	if _, ok := res.Docs[0]["fields"]; ok {
		t.Error("fields wrapper not flattened")
	}
	if tags, ok := res.Docs[1]["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %v", res.Docs[1]["tags"])
	}
}

func TestDecodeSelectJSON_FlatDocs(t *testing.T) {
	body := `{"response":{"numFound":1,"maxScore":1.5,"docs":[{"id":"a","name":"ann"}]}}`
	res, err := decodeSelectJSON([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MaxScore != 1.5 {
		t.Errorf("maxScore = %v", res.MaxScore)
	}
	if res.Docs[0]["name"] != "ann" || res.Docs[0].ID() != "a" {
		t.Errorf("doc = %v", res.Docs[0])
	}
}

func TestDecodeSelectJSON_Empty(t *testing.T) {
	res, err := decodeSelectJSON([]byte(`{"response":{"numFound":0,"maxScore":"0.0","docs":[]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NumFound != 0 || res.Docs == nil || res.Len() != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestDecodeSelectJSON_Invalid(t *testing.T) {
	for _, body := range []string{"", "not json", `{"response":{"maxScore":"abc"}}`} {
		if _, err := decodeSelectJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
}

func TestDecodeSelectXML(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<response>
  <lst name="responseHeader"><int name="status">0</int><int name="QTime">1</int></lst>
  <result name="response" numFound="3" start="0" maxScore="0.5">
    <doc>
      <str name="id">user</str>
      <str name="username">roidrage</str>
      <int name="age">31</int>
      <float name="score">0.5</float>
      <bool name="admin">true</bool>
      <arr name="tags"><str>a</str><str>b</str></arr>
    </doc>
  </result>
</response>`
	res, err := decodeSelectXML([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NumFound != 3 || res.MaxScore != 0.5 || res.Len() != 1 {
		t.Fatalf("result = %+v", res)
	}
	doc := res.Docs[0]
	if doc.ID() != "user" || doc["username"] != "roidrage" {
		t.Errorf("doc = %v", doc)
	}
	if doc["age"] != int64(31) || doc["score"] != 0.5 || doc["admin"] != true {
		t.Errorf("typed values = %v %v %v", doc["age"], doc["score"], doc["admin"])
	}
	tags, ok := doc["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" {
		t.Errorf("tags = %v", doc["tags"])
	}
}

func TestDecodeSelectXML_Invalid(t *testing.T) {
	if _, err := decodeSelectXML([]byte(`<response><result maxScore="x"/></response>`)); err == nil {
		t.Error("expected error for bad maxScore")
	}
	if _, err := decodeSelectXML([]byte(`<response>`)); err == nil || !strings.Contains(err.Error(), "EOF") {
		t.Errorf("err = %v, want unexpected EOF", err)
	}
}
