package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUnmarshal_CanonicalKeys(t *testing.T) {
	data := `{"id":3,"adaptor":"haiku","outer_idx":1,"inner_idx":2,"image":"Autumn","response":"leaves fall","accepted":true}`

	var p Poem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.ID != 3 {
		t.Errorf("ID = %d, want 3", p.ID)
	}
	if p.Title != "Autumn" {
		t.Errorf("Title = %q, want %q", p.Title, "Autumn")
	}
	if p.Body != "leaves fall" {
		t.Errorf("Body = %q, want %q", p.Body, "leaves fall")
	}
	if !p.Accepted || p.Deleted {
		t.Errorf("flags = accepted:%v deleted:%v, want accepted only", p.Accepted, p.Deleted)
	}
}

func TestUnmarshal_FallbackKeys(t *testing.T) {
	data := `{"id":1,"title":"Old Title","body":"old body"}`

	var p Poem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Title != "Old Title" {
		t.Errorf("Title = %q, want fallback %q", p.Title, "Old Title")
	}
	if p.Body != "old body" {
		t.Errorf("Body = %q, want fallback %q", p.Body, "old body")
	}
}

func TestUnmarshal_CanonicalWinsOverFallback(t *testing.T) {
	data := `{"id":1,"image":"Canonical","title":"Fallback","response":"canonical body","body":"fallback body"}`

	var p Poem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Title != "Canonical" {
		t.Errorf("Title = %q, canonical key should win", p.Title)
	}
	if p.Body != "canonical body" {
		t.Errorf("Body = %q, canonical key should win", p.Body)
	}
}

func TestMarshal_UsesCanonicalKeys(t *testing.T) {
	p := Poem{ID: 7, Title: "Winter", Body: "snow on snow", Accepted: true}
	data, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)

	for _, key := range []string{`"id"`, `"image"`, `"response"`, `"accepted"`, `"deleted"`, `"edited"`, `"outer_idx"`, `"inner_idx"`} {
		if !strings.Contains(s, key) {
			t.Errorf("output missing canonical key %s: %s", key, s)
		}
	}
	if strings.Contains(s, `"title"`) || strings.Contains(s, `"body"`) {
		t.Errorf("output should not contain fallback keys: %s", s)
	}
}

func TestAcceptDelete_MutualExclusion(t *testing.T) {
	var p Poem

	p.Accept()
	if !p.Accepted || p.Deleted {
		t.Errorf("after Accept: accepted:%v deleted:%v", p.Accepted, p.Deleted)
	}

	p.MarkDeleted()
	if p.Accepted || !p.Deleted {
		t.Errorf("after MarkDeleted: accepted:%v deleted:%v", p.Accepted, p.Deleted)
	}

	p.Accept()
	if !p.Accepted || p.Deleted {
		t.Errorf("after re-Accept: accepted:%v deleted:%v", p.Accepted, p.Deleted)
	}
}

func TestEdit(t *testing.T) {
	p := Poem{ID: 1, Title: "Before", Body: "before body"}
	p.Edit("After", "after body")

	if p.Title != "After" || p.Body != "after body" {
		t.Errorf("text = %q / %q, want edited values", p.Title, p.Body)
	}
	if !p.Edited {
		t.Error("Edited should be true after Edit")
	}
	if p.Accepted || p.Deleted {
		t.Error("Edit must not touch status flags")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		poem Poem
		want string
	}{
		{"pending", Poem{}, "pending"},
		{"accepted", Poem{Accepted: true}, "accepted"},
		{"deleted", Poem{Deleted: true}, "deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.poem.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerdictDecided(t *testing.T) {
	if (Verdict{}).Decided() {
		t.Error("empty verdict should not be decided")
	}
	if !(Verdict{Accepted: true}).Decided() {
		t.Error("accepted verdict should be decided")
	}
	if !(Verdict{Deleted: true}).Decided() {
		t.Error("deleted verdict should be decided")
	}
}
