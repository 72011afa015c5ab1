// Package tools holds the small offline generators (UUIDs, passwords)
// that don't need a model call.
package tools

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*-_"

// NewUUIDv4 returns a random UUID.
func NewUUIDv4() string {
	return uuid.New().String()
}

// NewUUIDv1 returns a time-based UUID with a randomized node identifier.
// The node field would normally leak the machine's MAC address; randomizing
// it is a deliberate privacy choice.
func NewUUIDv1() (string, error) {
	var node [6]byte
	if _, err := rand.Read(node[:]); err != nil {
		return "", fmt.Errorf("failed to randomize node id: %w", err)
	}
	// Set the multicast bit so the random node can't collide with a real
	// MAC address, per RFC 4122 §4.5.
	node[0] |= 0x01
	uuid.SetNodeID(node[:])

	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID v1: %w", err)
	}
	return id.String(), nil
}

// RandomPassword returns a password of the given length drawn from a
// mixed-class charset using crypto/rand.
func RandomPassword(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("password length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = passwordCharset[int(b)%len(passwordCharset)]
	}
	return string(buf), nil
}
