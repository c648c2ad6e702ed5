package resolver

import (
	"errors"
	"testing"
)

func TestContainsConflictMarkers(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    bool
	}{
		{"clean", "package main\n\nfunc main() {}\n", false},
		{"start marker", "a\n<<<<<<< HEAD\nb\n", true},
		{"end marker", "a\n>>>>>>> feature\nb\n", true},
		{"separator line", "a\n=======\nb\n", true},
		{"diff3 base marker", "a\n||||||| base\nb\n", true},
		{"equals in prose", "title\n========= underline\nbody\n", false},
		{"equals mid line", "x == y; z === w\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContainsConflictMarkers(tc.content); got != tc.want {
				t.Errorf("ContainsConflictMarkers = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidate_MarkersAlwaysRejected(t *testing.T) {
	v := NewValidator(false)
	defer v.Close()

	err := v.Validate("any.txt", "<<<<<<< ours\nx\n=======\ny\n>>>>>>> theirs\n")
	if err == nil {
		t.Fatal("marker-bearing content must be rejected")
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error should wrap ErrValidation, got %v", err)
	}
}

func TestValidate_SyntaxGo(t *testing.T) {
	v := NewValidator(true)
	defer v.Close()

	valid := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"ok\")\n}\n"
	if err := v.Validate("main.go", valid); err != nil {
		t.Errorf("valid Go rejected: %v", err)
	}

	invalid := "package main\n\nfunc main() {\n\tif {{{\n"
	if err := v.Validate("main.go", invalid); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid Go should fail validation, got %v", err)
	}
}

func TestValidate_SyntaxPython(t *testing.T) {
	v := NewValidator(true)
	defer v.Close()

	if err := v.Validate("app.py", "def greet(name):\n    return f\"hi {name}\"\n"); err != nil {
		t.Errorf("valid Python rejected: %v", err)
	}
	if err := v.Validate("app.py", "def broken(:\n    return\n"); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid Python should fail validation, got %v", err)
	}
}

func TestValidate_UnrecognizedTypeSkipsSyntax(t *testing.T) {
	v := NewValidator(true)
	defer v.Close()

	// Not a recognized source type: only the marker check applies
	if err := v.Validate("data.csv", "a,b,c\n1,2,{{{{\n"); err != nil {
		t.Errorf("unrecognized type should skip syntax check: %v", err)
	}
}

func TestValidate_SyntaxDisabled(t *testing.T) {
	v := NewValidator(false)
	defer v.Close()

	// Broken Go passes when syntax checks are off
	if err := v.Validate("main.go", "package main\n\nfunc {{{\n"); err != nil {
		t.Errorf("syntax check should be disabled: %v", err)
	}
}
