package uid

import "testing"

func TestNew(t *testing.T) {
	id := New()
	if !Valid(id) {
		t.Errorf("New produced invalid id %q", id)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"0b425e45-14b3-4f6a-9c1e-3a2b94d0f7aa", true},
		{"0B425E45-14B3-4F6A-9C1E-3A2B94D0F7AA", true},
		{"0b425e45-14b3-4f6a-9c1e-3a2b94d0f7a", false},
		{"0b425e4514b34f6a9c1e3a2b94d0f7aa", false},
		{"not-an-id", false},
		{"", false},
		{"0b425e45-14b3-4f6a-9c1e-3a2b94d0f7aa\n", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.s); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}
