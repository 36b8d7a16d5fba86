package cryptoutil

import (
	"strings"
	"testing"
)

func TestSHA256Hex(t *testing.T) {
	// sha256("") is well known
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex(nil); got != empty {
		t.Fatalf("SHA256Hex(nil) = %s", got)
	}
	if !ValidSHA256Hex(SHA256Hex([]byte("articles"))) {
		t.Fatal("output of SHA256Hex should be valid")
	}
}

func TestHashEqual(t *testing.T) {
	a := SHA256Hex([]byte("a"))
	if !HashEqual(a, a) {
		t.Fatal("equal hashes should compare equal")
	}
	if HashEqual(a, SHA256Hex([]byte("b"))) {
		t.Fatal("different hashes compared equal")
	}
	if HashEqual(a, a[:10]) {
		t.Fatal("prefix compared equal")
	}
}

func TestValidSHA256Hex(t *testing.T) {
	good := strings.Repeat("ab", 32)
	tests := []struct {
		in   string
		want bool
	}{
		{good, true},
		{"", false},
		{good[:63], false},
		{good + "a", false},
		{strings.ToUpper(good), false},
		{strings.Repeat("g", 64), false},
		{"sha256:" + good[:57], false},
	}
	for _, tt := range tests {
		if got := ValidSHA256Hex(tt.in); got != tt.want {
			t.Errorf("ValidSHA256Hex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
