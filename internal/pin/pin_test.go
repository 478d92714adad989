package pin

import "testing"

func TestGate_Verify(t *testing.T) {
	g := NewGate(DefaultSecret)

	tests := []struct {
		attempt string
		want    bool
	}{
		{"2809", true},
		{" 2809\n", true},
		{"280", false},
		{"28090", false},
		{"abcd", false},
		{"", false},
		{"1234", false},
		{"２８０９", false},
	}
	for _, tt := range tests {
		if got := g.Verify(tt.attempt); got != tt.want {
			t.Fatalf("Verify(%q) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestGate_NonDigitSecretNeverMatches(t *testing.T) {
	g := NewGate("abcd")
	if g.Verify("abcd") {
		t.Fatal("a secret that is not four digits must never verify")
	}
}
