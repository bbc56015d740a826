package present

import (
	"reflect"
	"testing"
)

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		q  string
		ok bool
	}{
		{"", false},
		{"ok", false},
		{"  a b  ", true},
		{"EPI", true},
		{"éé", false},
		{"What PPE is required?", true},
	}
	for _, tt := range tests {
		err := ValidateQuestion(tt.q)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateQuestion(%q) = %v, want ok=%v", tt.q, err, tt.ok)
		}
	}
}

func TestUniqueSources(t *testing.T) {
	got := UniqueSources([]string{"b.pdf", "a.pdf", "b.pdf", "unknown", "", "a.pdf"})
	want := []string{"b.pdf", "a.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueSources() = %v, want %v", got, want)
	}
	if got := UniqueSources(nil); len(got) != 0 {
		t.Errorf("UniqueSources(nil) = %v, want empty", got)
	}
}

func TestSafetyNotice(t *testing.T) {
	for _, q := range []string{"Que faire en cas d'URGENCE ?", "Procedure after an accident", "injury report"} {
		if SafetyNotice(q) == "" {
			t.Errorf("SafetyNotice(%q) is empty", q)
		}
	}
	if n := SafetyNotice("Which helmet should I wear?"); n != "" {
		t.Errorf("unexpected notice %q", n)
	}
}

func TestFormatSources(t *testing.T) {
	if got := FormatSources([]string{"a.pdf", "b.json"}); got != "1. a.pdf\n2. b.json\n" {
		t.Errorf("FormatSources() = %q", got)
	}
}
