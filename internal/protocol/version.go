// Package protocol implements the line-oriented text protocol spoken over the
// websocket: parsing client commands and rendering server messages.
package protocol

import (
	"strconv"

	"github.com/playgambit/backend/internal/errs"
)

// Version is a client protocol version. Legacy clients speak a reduced
// single-game dialect; current clients address games by id and receive
// confirmations for commands without an explicit reply.
type Version int

const (
	Legacy  Version = 1
	Current Version = 2
)

// ParseVersion reads a protocol version number from a command argument.
func ParseVersion(s string) (Version, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.ErrInvalidNumberID
	}
	switch Version(n) {
	case Legacy, Current:
		return Version(n), nil
	default:
		return 0, errs.ErrInvalidProtocolVersion
	}
}

func (v Version) String() string {
	return strconv.Itoa(int(v))
}
