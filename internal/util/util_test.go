package util

import "testing"

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "Springfield", "Springfield"},
		{"double quoted", `"Springfield"`, "Springfield"},
		{"single quotes only", "'x'", "'x'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimQuotes(tt.input); got != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	if got := FixEscapeQuotes(`say ""hi""`); got != `say "hi"` {
		t.Errorf("FixEscapeQuotes = %q", got)
	}
}

func TestCleanArgs(t *testing.T) {
	in := []string{` "80" `, `"metric"`, `"[[0,0,0],[1,0,1]]"`, `"Old ""Town"""`}
	got := CleanArgs(in)

	want := []string{"80", "metric", "[[0,0,0],[1,0,1]]", `Old "Town`}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CleanArgs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if in[0] != ` "80" ` {
		t.Error("CleanArgs modified its input")
	}
}

func TestArg(t *testing.T) {
	args := []string{"a", "b"}
	if Arg(args, 1) != "b" || Arg(args, 2) != "" || Arg(args, -1) != "" {
		t.Error("Arg returned unexpected values")
	}
}
