package field

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	tests := []struct {
		name string
		ft   Type
	}{
		{"status", Keyword},
		{"amount", Numeric},
		{"description", Text},
		{"attributes.module", Keyword},
		{"_private", Keyword},
		{strings.Repeat("x", 128), Numeric},
	}

	for _, tt := range tests {
		f, err := New(tt.name, tt.ft)
		if err != nil {
			t.Errorf("New(%q, %q) unexpected error: %v", tt.name, tt.ft, err)
			continue
		}
		if f.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", f.Name(), tt.name)
		}
		if f.FieldType() != tt.ft {
			t.Errorf("FieldType() = %q, want %q", f.FieldType(), tt.ft)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		ft      Type
		wantErr string
	}{
		{"", Keyword, "required"},
		{strings.Repeat("x", 129), Keyword, "too long"},
		{"1abc", Keyword, "identifier"},
		{"a..b", Keyword, "identifier"},
		{"has space", Keyword, "identifier"},
		{"ok", "geo", "invalid field type"},
	}
	for _, tt := range tests {
		_, err := New(tt.name, tt.ft)
		if err == nil {
			t.Errorf("New(%q, %q) expected error", tt.name, tt.ft)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("New(%q, %q) error = %q, want substring %q", tt.name, tt.ft, err, tt.wantErr)
		}
	}
}

func TestType_IsValid(t *testing.T) {
	for _, ft := range []Type{Keyword, Text, Numeric} {
		if !ft.IsValid() {
			t.Errorf("%q should be valid", ft)
		}
	}
	if Type("tag").IsValid() {
		t.Error("tag should be invalid")
	}
}
