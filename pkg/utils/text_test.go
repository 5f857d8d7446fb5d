package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("maxLen 0 should be a no-op, got %q", got)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"111222", "111222"},
		{"ABC 123/456", "ABC_123_456"},
		{"inv#77*", "inv_77_"},
		{"doc-1.pdf", "doc-1.pdf"},
		{"счет 42", "счет_42"},
		{"", ""},
		{"a\tb\nc", "a_b_c"},
		{"DOC_1 (final)", "DOC_1__final_"},
	}
	for _, c := range cases {
		if got := SafeFileName(c.in); got != c.want {
			t.Errorf("SafeFileName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  DOC   1  "); got != "DOC 1" {
		t.Errorf("got %q", got)
	}
	if got := CollapseSpaces("one"); got != "one" {
		t.Errorf("got %q", got)
	}
	if got := CollapseSpaces("   "); got != "" {
		t.Errorf("got %q", got)
	}
}
