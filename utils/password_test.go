package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("green-schools-2025")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "green-schools-2025" {
		t.Fatal("expected hash to differ from the plain password")
	}

	if !CheckPasswordHash("green-schools-2025", hash) {
		t.Fatal("expected the original password to verify")
	}
	if CheckPasswordHash("wrong-password", hash) {
		t.Fatal("expected a wrong password to fail verification")
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("expected different hashes for the same password")
	}
}
