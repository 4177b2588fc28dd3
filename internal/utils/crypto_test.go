package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestHMACSignAndVerify(t *testing.T) {
	payload := []byte(`{"type":"payment_intent.succeeded","id":"pi_1"}`)

	sig := SignHMAC("whsec_test", payload)
	if !VerifyHMAC("whsec_test", payload, sig) {
		t.Error("valid signature should verify")
	}
	if VerifyHMAC("whsec_other", payload, sig) {
		t.Error("signature from another secret should not verify")
	}
	if VerifyHMAC("whsec_test", []byte("tampered"), sig) {
		t.Error("tampered payload should not verify")
	}
	if VerifyHMAC("whsec_test", payload, "deadbeef") {
		t.Error("garbage signature should not verify")
	}
}
