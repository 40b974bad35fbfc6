// Package errs defines the command error taxonomy. Each value's message is the
// exact text sent to the client after the "error " prefix, so handlers can
// reply with err.Error() directly.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuchUser             = errors.New("no such user")
	ErrMalformedAPIKey        = errors.New("malformed api key")
	ErrInvalidAPIKey          = errors.New("invalid api key")
	ErrIncorrectCredentials   = errors.New("incorrect login credentials")
	ErrEmailAlreadyTaken      = errors.New("email is already taken")
	ErrNotLoggedIn            = errors.New("you are not logged in")
	ErrNoSuchGame             = errors.New("no such game")
	ErrAlreadyInGame          = errors.New("you are already in that game")
	ErrGameAlreadyStarted     = errors.New("that game has already started")
	ErrDontOwnGame            = errors.New("you aren't the owner of that game")
	ErrInvalidNumberOfPlayers = errors.New("invalid number of players joined to start game")
	ErrNotInGame              = errors.New("you aren't a player in that game")
	ErrInvalidNumberID        = errors.New("malformed id or number")
	ErrInvalidProtocolVersion = errors.New("invalid protocol version")
	ErrNotTurn                = errors.New("it is not your turn to move in that game")
	ErrNoSuchTournament       = errors.New("no such tournament")
	ErrNoSuchTournamentType   = errors.New("no such tournament type")
)

// InvalidCommand reports an unknown command verb.
func InvalidCommand(cmd string) error {
	return fmt.Errorf("unrecognized command: %s", cmd)
}

// InvalidNumberOfArguments reports an argument count mismatch for a known command.
func InvalidNumberOfArguments(cmd string, expected, actual int) error {
	return fmt.Errorf("invalid number of arguments for command %s - expected %d, found %d", cmd, expected, actual)
}

// NoSuchGameType reports an unregistered game type string.
func NoSuchGameType(gameType string) error {
	return fmt.Errorf("unsupported game type: %s", gameType)
}

// InvalidMove wraps a move rejection reason from a game type.
func InvalidMove(reason error) error {
	return fmt.Errorf("invalid move: %s", reason)
}

// WrongProtocol reports a command issued under the wrong protocol version.
func WrongProtocol(expected, actual int) error {
	return fmt.Errorf("that command is only available in protocol version %d (you are in version %d)", expected, actual)
}

// Database wraps a store-level failure into the generic message surfaced to
// clients. The underlying error stays available for logs via Unwrap.
func Database(err error) error {
	return fmt.Errorf("database error: %w", err)
}
