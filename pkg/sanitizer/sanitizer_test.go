package sanitizer

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims and collapses", "  Jane   Doe ", "Jane Doe"},
		{"strips control characters", "Jane\x00Doe", "JaneDoe"},
		{"keeps unicode letters", "José Álvarez", "José Álvarez"},
		{"empty stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Jane@Example.COM ", "jane@example.com"},
		{"a@x.com", "a@x.com"},
	}

	for _, tt := range tests {
		if got := Email(tt.input); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+1 (555) 010-9999", "+15550109999"},
		{"055-501-0999", "0555010999"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Phone(tt.input); got != tt.want {
			t.Errorf("Phone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	got := Text("  line one\nline two\x07  ")
	want := "line one\nline two"
	if got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
