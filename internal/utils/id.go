package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	roomTokenLen      = 12
	roomTokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugMaxLen        = 30
)

// NewRoomToken returns a random lowercase alphanumeric token used in room links.
func NewRoomToken() string {
	var b strings.Builder
	b.Grow(roomTokenLen)
	limit := big.NewInt(int64(len(roomTokenAlphabet)))
	for range roomTokenLen {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// Fallback to a v4 uuid if crypto/rand is unavailable.
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:roomTokenLen]
		}
		b.WriteByte(roomTokenAlphabet[n.Int64()])
	}
	return b.String()
}

// EngineRoomName derives the conferencing engine room name from a room
// name and its token: "<slug>_<token>".
func EngineRoomName(name, token string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	if len(slug) > slugMaxLen {
		slug = slug[:slugMaxLen]
	}
	return slug + "_" + token
}

// NewIdentity returns a unique participant identity with the given prefix.
func NewIdentity(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id[:8]
}
