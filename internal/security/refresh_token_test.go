package security

import "testing"

func TestNewRefreshToken_Unique(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a == b {
		t.Error("two refresh tokens are identical")
	}
	if len(a) < 40 {
		t.Errorf("token length = %d, want >= 40 (32 bytes base64url)", len(a))
	}
}

func TestHashRefreshToken_Consistent(t *testing.T) {
	token := "test-refresh-token-123"
	hash1 := HashRefreshToken(token)
	hash2 := HashRefreshToken(token)

	if hash1 != hash2 {
		t.Errorf("HashRefreshToken not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestHashRefreshToken_DifferentTokens(t *testing.T) {
	if HashRefreshToken("token-1") == HashRefreshToken("token-2") {
		t.Error("HashRefreshToken produced same hash for different tokens")
	}
}

func TestRefreshTokenHashEqual_CorrectMatch(t *testing.T) {
	token := "test-refresh-token-456"
	storedHash := HashRefreshToken(token)

	if !RefreshTokenHashEqual(token, storedHash) {
		t.Error("RefreshTokenHashEqual should match correct token")
	}
}

func TestRefreshTokenHashEqual_RejectsIncorrect(t *testing.T) {
	storedHash := HashRefreshToken("correct-token")
	if RefreshTokenHashEqual("wrong-token", storedHash) {
		t.Error("RefreshTokenHashEqual should reject incorrect token")
	}
}

func TestRefreshTokenHashEqual_RejectsLengthMismatch(t *testing.T) {
	token := "test-token-789"
	storedHash := HashRefreshToken(token)
	if RefreshTokenHashEqual(token, "a"+storedHash) {
		t.Error("RefreshTokenHashEqual should reject hash with different length")
	}
}

func TestRefreshTokenHashEqual_EmptyInputs(t *testing.T) {
	if RefreshTokenHashEqual("", "") {
		t.Error("RefreshTokenHashEqual should not match empty inputs")
	}
	if RefreshTokenHashEqual("", HashRefreshToken("some-token")) {
		t.Error("RefreshTokenHashEqual should not match empty token")
	}
}
