package auth

import (
	"slices"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	j := &JWTer{Secret: []byte("s3cret"), Issuer: "ajeu", TTL: time.Minute}
	tok, err := j.Issue("42", "aya@example.com", []string{"ROLE_MEMBER", "ROLE_USER"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.UID != "42" || c.Email != "aya@example.com" {
		t.Errorf("claims = %+v", c)
	}
	if !slices.Contains(c.Roles, "ROLE_MEMBER") {
		t.Errorf("roles = %v", c.Roles)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	a := &JWTer{Secret: []byte("a"), Issuer: "ajeu", TTL: time.Minute}
	b := &JWTer{Secret: []byte("b"), Issuer: "ajeu", TTL: time.Minute}
	tok, _ := a.Issue("1", "x@y.z", nil)
	if _, err := b.Parse(tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	j := &JWTer{Secret: []byte("s"), Issuer: "ajeu", TTL: -5 * time.Minute}
	tok, _ := j.Issue("1", "x@y.z", nil)
	if _, err := j.Parse(tok); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	j := &JWTer{Issuer: "ajeu", TTL: time.Minute}
	if _, err := j.Issue("1", "x@y.z", nil); err == nil {
		t.Fatal("expected signing failure without secret")
	}
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewRefreshToken()
	if len(a) != 2*RefreshTokenBytes {
		t.Errorf("len = %d, want %d", len(a), 2*RefreshTokenBytes)
	}
	if a == b {
		t.Error("two refresh tokens collided")
	}
}
