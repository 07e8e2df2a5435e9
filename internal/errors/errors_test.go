package errors

import (
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E101",
			wantMsg: "Invalid config syntax",
			wantCat: CategoryConfig,
		},
		{
			name:    "protocol error",
			code:    "E200",
			wantMsg: "Protocol version mismatch",
			wantCat: CategoryProtocol,
		},
		{
			name:    "session error",
			code:    "E302",
			wantMsg: "Unknown node",
			wantCat: CategorySession,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestRegistryCodesMatchCategory(t *testing.T) {
	prefix := map[Category]string{
		CategoryConfig:   "E1",
		CategoryProtocol: "E2",
		CategorySession:  "E3",
		CategorySnapshot: "E4",
		CategoryCLI:      "E5",
	}
	for _, code := range Codes() {
		tmpl, ok := Lookup(code)
		if !ok {
			t.Fatalf("Lookup(%q) failed", code)
		}
		if !strings.HasPrefix(code, prefix[tmpl.Category]) {
			t.Errorf("%s is registered under category %q", code, tmpl.Category)
		}
		if tmpl.Message == "" {
			t.Errorf("%s has no message", code)
		}
	}
}

func TestDragErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *DragError
		want string
	}{
		{"code only", New("E301"), "E301: Unknown bag"},
		{"with source", New("E301").WithSource("trash"), "E301: Unknown bag (trash)"},
		{"wrapped", New("E401").Wrap(stderrors.New("disk full")), "E401: Snapshot write failed: disk full"},
		{"no code", &DragError{Message: "test error"}, "test error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDragErrorIsAndUnwrap(t *testing.T) {
	inner := stderrors.New("boom")
	err := New("E400").Wrap(inner)

	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
	if !stderrors.Is(err, New("E400")) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, New("E401")) {
		t.Error("different codes should not match")
	}
	if stderrors.Is(&DragError{Message: "x"}, &DragError{Message: "x"}) {
		t.Error("uncoded errors should not match by value")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E101") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	de := New("E101")
	if FromError(de, "E102") != de {
		t.Error("FromError should return DragError as-is")
	}

	std := stderrors.New("bad toml")
	result := FromError(std, "E101")
	if result.Wrapped != std || result.Code != "E101" {
		t.Errorf("FromError = %+v", result)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "step %d failed", 3)
	if err.Message != "step 3 failed" || err.Category != CategoryCLI {
		t.Errorf("Newf = %+v", err)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E103").WithSource("dragula.toml").WithSuggestion("Rename one")
	out := err.Format()

	for _, want := range []string{
		"ERROR E103: Duplicate bag name",
		"dragula.toml",
		"Every bag must have a unique name",
		"Hint: Rename one",
		"Learn more: docs/errors.md#E103",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not emit colors when disabled")
	}

	if got := err.FormatCompact(); got != "dragula.toml: E103: Duplicate bag name" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E402").WithSource("snapshots/abc.json").Wrap(stderrors.New("404"))

	var got map[string]string
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("FormatJSON() is not JSON: %v", jerr)
	}
	if got["code"] != "E402" || got["category"] != "snapshot" || got["cause"] != "404" {
		t.Errorf("FormatJSON() = %v", got)
	}
	if _, ok := got["detail"]; ok {
		t.Error("empty detail should be omitted")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should produce no lines")
	}
}
