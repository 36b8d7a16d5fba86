package article

import (
	"encoding/json"
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"
)

var tokenPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

func TestRegistry_Count(t *testing.T) {
	if Len() != 44 {
		t.Fatalf("Len() = %d, want 44", Len())
	}
	if len(All()) != 44 {
		t.Fatalf("len(All()) = %d, want 44", len(All()))
	}
}

func TestRegistry_NoDuplicates(t *testing.T) {
	seen := make(map[ID]bool)
	for _, id := range All() {
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != Len() {
		t.Fatalf("unique count = %d, want %d", len(seen), Len())
	}
}

func TestRegistry_TokenForm(t *testing.T) {
	for _, id := range All() {
		s := string(id)
		if !tokenPattern.MatchString(s) {
			t.Errorf("id %q does not match %s", s, tokenPattern)
		}
		if strings.TrimSpace(s) != s {
			t.Errorf("id %q has surrounding whitespace", s)
		}
	}
}

func TestRegistry_Sorted(t *testing.T) {
	if !slices.IsSorted(All()) {
		t.Fatal("All() is not sorted")
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	a[0] = "mutated"
	if All()[0] == "mutated" {
		t.Fatal("mutating All() result changed the registry")
	}
}

func TestIsValid_EveryRegisteredID(t *testing.T) {
	for _, id := range All() {
		if !IsValid(string(id)) {
			t.Errorf("IsValid(%q) = false, want true", id)
		}
		if !id.Valid() {
			t.Errorf("%q.Valid() = false, want true", id)
		}
	}
}

func TestIsValid_Rejects(t *testing.T) {
	tests := []string{
		"",
		"not-a-real-article",
		"cssmodules",
		"css-module",
		"CSS",
		"Css-Modules",
		" css",
		"css ",
		"css/",
		"../css",
		"plugins\x00",
		"introduction.md",
	}
	for _, s := range tests {
		if IsValid(s) {
			t.Errorf("IsValid(%q) = true, want false", s)
		}
	}
}

func TestIsValid_Scenario(t *testing.T) {
	if !IsValid("css-modules") {
		t.Fatal(`IsValid("css-modules") = false, want true`)
	}
	if IsValid("cssmodules") {
		t.Fatal(`IsValid("cssmodules") = true, want false`)
	}
}

func TestParse_Known(t *testing.T) {
	id, err := Parse("environments-and-modes")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id != EnvironmentsAndModes {
		t.Fatalf("Parse = %q, want %q", id, EnvironmentsAndModes)
	}
}

func TestParse_Unknown(t *testing.T) {
	id, err := Parse("not-a-real-article")
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
	if !strings.Contains(err.Error(), "not-a-real-article") {
		t.Fatalf("error should name the input, got: %v", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
}

func TestID_ConvertedValueNotValid(t *testing.T) {
	if ID("made-up").Valid() {
		t.Fatal("converted unknown ID reported valid")
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	in := struct {
		ID ID `json:"id"`
	}{ID: TypeScript}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"id":"typescript"}` {
		t.Fatalf("json = %s", b)
	}

	var out struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.ID != TypeScript {
		t.Fatalf("ID = %q, want typescript", out.ID)
	}
}

func TestID_UnmarshalRejectsUnknown(t *testing.T) {
	var out struct {
		ID ID `json:"id"`
	}
	err := json.Unmarshal([]byte(`{"id":"webpack"}`), &out)
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("err = %v, want ErrUnknown", err)
	}
}

func TestID_MarshalRejectsUnknown(t *testing.T) {
	if _, err := json.Marshal(ID("webpack")); err == nil {
		t.Fatal("expected error marshalling unknown id")
	}
}

func TestID_MapKeys(t *testing.T) {
	m := map[ID]int{Sass: 1, SSR: 2}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back map[ID]int
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back[Sass] != 1 || back[SSR] != 2 {
		t.Fatalf("round trip map = %v", back)
	}
}
