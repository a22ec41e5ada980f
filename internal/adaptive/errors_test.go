package adaptive

import (
	"reflect"
	"testing"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"./main.go:5:2: undefined: fmtx", "undefined: <identifier>"},
		{"./main.go:7:9: cannot use s (variable of type string) as int value in return statement", "type mismatch"},
		{"./main.go:3:1: syntax error: non-declaration statement outside function body", "syntax error"},
		{"./main.go:12:1: missing return", "missing return"},
		{`./main.go:4:2: "os" imported and not used`, "unused import"},
		{"main_test.go:10: got 3, want 4", "assertion failed: wrong value"},
		{"panic: runtime error: invalid memory address or nil pointer dereference", "nil pointer"},
		{"panic: runtime error: index out of range [3] with length 3", "panic"},
		{"fatal error: all goroutines are asleep - deadlock!", "deadlock"},
		{"WARNING: DATA RACE", "data race"},
		{"   ", ""},
		{"ok  \texercise\t0.01s", ""},
	}

	for _, tt := range tests {
		if got := NormalizeError(tt.line); got != tt.want {
			t.Errorf("NormalizeError(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestExtractErrorPatterns(t *testing.T) {
	output := `# exercise
./main.go:5:2: undefined: a
./main.go:6:2: undefined: b
./main.go:9:1: missing return
FAIL	exercise [build failed]
`
	want := []string{"missing return", "undefined: <identifier>"}
	if got := ExtractErrorPatterns(output); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractErrorPatterns() = %v, want %v", got, want)
	}

	if got := ExtractErrorPatterns(""); len(got) != 0 {
		t.Errorf("ExtractErrorPatterns(\"\") = %v, want empty", got)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		sig  string
		want string
	}{
		{"syntax error", CategorySyntax},
		{"type mismatch", CategoryTypes},
		{"missing arguments", CategoryTypes},
		{"invalid assignment", CategoryTypes},
		{"undefined: <identifier>", CategoryScope},
		{"unused import", CategoryScope},
		{"redeclaration", CategoryScope},
		{"deadlock", CategoryConcurrency},
		{"data race", CategoryConcurrency},
		{"timeout", CategoryConcurrency},
		{"nil pointer", CategoryRuntime},
		{"index out of bounds", CategoryRuntime},
		{"assertion failed: wrong value", CategoryLogic},
		{"missing return", CategoryLogic},
		{"the printer is on fire", CategoryOther},
	}

	for _, tt := range tests {
		if got := CategorizeError(tt.sig); got != tt.want {
			t.Errorf("CategorizeError(%q) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestFocusAreas(t *testing.T) {
	errs := []string{
		"got 1, want 2",
		"got 3, want 4",
		"nil pointer dereference",
		"cannot use x (variable of type int) as string value",
		"undefined: y",
		"unknown thing",
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{CategoryLogic, CategoryRuntime, CategoryScope, CategoryTypes}},
		{2, []string{CategoryLogic, CategoryRuntime}},
	}
	for _, tt := range tests {
		if got := FocusAreas(errs, tt.limit); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FocusAreas(limit=%d) = %v, want %v", tt.limit, got, tt.want)
		}
	}

	if got := FocusAreas(nil, 3); len(got) != 0 {
		t.Errorf("FocusAreas(nil) = %v, want empty", got)
	}
}
