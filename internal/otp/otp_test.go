package otp

import "testing"

func TestGenerateLengthAndCharset(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != Digits {
			t.Fatalf("expected %d digits, got %q", Digits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit character in %q", code)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatalf("expected varied codes, got %d distinct out of 50", len(seen))
	}
}
