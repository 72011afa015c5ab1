package tools

import (
	"strings"
	"testing"
)

func TestNewUUIDv4(t *testing.T) {
	id := NewUUIDv4()
	if len(id) != 36 {
		t.Fatalf("unexpected UUID length: %q", id)
	}
	if id[14] != '4' {
		t.Errorf("expected version 4, got %q", id)
	}
	if id == NewUUIDv4() {
		t.Error("two generated UUIDs must differ")
	}
}

func TestNewUUIDv1(t *testing.T) {
	id, err := NewUUIDv1()
	if err != nil {
		t.Fatalf("NewUUIDv1 returned error: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("unexpected UUID length: %q", id)
	}
	if id[14] != '1' {
		t.Errorf("expected version 1, got %q", id)
	}

	// The node field (last 12 hex digits) is randomized with the multicast
	// bit set, so it must never look like a unicast MAC address.
	node := id[24:]
	firstByte := node[:2]
	val := hexByte(t, firstByte)
	if val&0x01 == 0 {
		t.Errorf("multicast bit not set in node field %q", node)
	}
}

func hexByte(t *testing.T, s string) byte {
	t.Helper()
	const digits = "0123456789abcdef"
	hi := strings.IndexByte(digits, s[0])
	lo := strings.IndexByte(digits, s[1])
	if hi < 0 || lo < 0 {
		t.Fatalf("not a hex byte: %q", s)
	}
	return byte(hi<<4 | lo)
}

func TestRandomPassword(t *testing.T) {
	password, err := RandomPassword(20)
	if err != nil {
		t.Fatalf("RandomPassword returned error: %v", err)
	}
	if len(password) != 20 {
		t.Errorf("unexpected length %d", len(password))
	}

	other, err := RandomPassword(20)
	if err != nil {
		t.Fatalf("RandomPassword returned error: %v", err)
	}
	if password == other {
		t.Error("two generated passwords must differ")
	}

	if _, err := RandomPassword(0); err == nil {
		t.Error("expected error for non-positive length")
	}
}
