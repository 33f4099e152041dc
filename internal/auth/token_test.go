package auth

import (
	"testing"
	"time"
)

func TestMintAndParseRoundTrip(t *testing.T) {
	token, err := Mint("key-123", "inst-9", "production", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := Parse(token, "key-123")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.InstanceID != "inst-9" {
		t.Fatalf("unexpected instance id %q", claims.InstanceID)
	}
	if claims.Environment != "production" {
		t.Fatalf("unexpected environment %q", claims.Environment)
	}
	if claims.Issuer != "yelix-sdk-go" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, err := Mint("key-123", "", "dev", time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := Parse(token, "other-key"); err == nil {
		t.Fatal("expected signature validation to fail")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := Mint("key-123", "inst-1", "dev", -time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := Parse(token, "key-123"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
