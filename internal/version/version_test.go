package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	v, c, d := Info()
	if v == "" || c == "" || d == "" {
		t.Fatalf("Info returned empty fields: version=%q commit=%q date=%q", v, c, d)
	}
}

func TestAccessorsMatchInfo(t *testing.T) {
	v, c, d := Info()

	if got := GetVersion(); got != v {
		t.Errorf("GetVersion() = %q, Info version = %q", got, v)
	}
	if got := GetCommit(); got != c {
		t.Errorf("GetCommit() = %q, Info commit = %q", got, c)
	}
	if got := GetDate(); got != d {
		t.Errorf("GetDate() = %q, Info date = %q", got, d)
	}
}

func TestString(t *testing.T) {
	s := String()
	if s == "" {
		t.Fatal("String should not return empty string")
	}

	for _, field := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, field) {
			t.Errorf("String() = %q, missing %q", s, field)
		}
	}
}
