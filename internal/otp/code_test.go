package otp

import (
	"testing"
)

func TestGenerateCode_ReturnsSixDigits(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code length = %d, want 6", len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Errorf("code contains non-digit: %c", c)
		}
	}
}

func TestGenerateCode_Randomness(t *testing.T) {
	// Generate multiple codes and verify they're different (very unlikely to be same)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("every generated code was identical")
	}
}

func TestGenerateCode_AllDigitsAppear(t *testing.T) {
	// Across 1000 codes (6000 digits) a uniform generator misses a
	// given digit with probability 0.9^6000, effectively zero.
	seen := make(map[rune]bool)
	for i := 0; i < 1000; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		for _, c := range code {
			seen[c] = true
		}
	}
	for d := '0'; d <= '9'; d++ {
		if !seen[d] {
			t.Errorf("digit %c never generated", d)
		}
	}
}

func TestHashCode_Consistent(t *testing.T) {
	code := "123456"
	hash1 := HashCode(code)
	hash2 := HashCode(code)

	if hash1 != hash2 {
		t.Errorf("HashCode not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestHashCode_DifferentInputs(t *testing.T) {
	hash1 := HashCode("123456")
	hash2 := HashCode("654321")

	if hash1 == hash2 {
		t.Error("HashCode produced same hash for different inputs")
	}
}

func TestCodeEqual_CorrectMatch(t *testing.T) {
	code := "123456"
	storedHash := HashCode(code)

	if !CodeEqual(code, storedHash) {
		t.Error("CodeEqual should match correct code")
	}
}

func TestCodeEqual_RejectsIncorrect(t *testing.T) {
	storedHash := HashCode("123456")

	if CodeEqual("654321", storedHash) {
		t.Error("CodeEqual should reject wrong code")
	}
	if CodeEqual("", storedHash) {
		t.Error("CodeEqual should reject empty code")
	}
}
