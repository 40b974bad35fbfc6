// Package games defines the game-type abstraction the engine plays through.
// The engine never inspects game rules; it only asks whose turn it is, applies
// moves, and round-trips instances through their string serialization.
package games

// Turn reports whose move it is in a game instance.
type Turn struct {
	// User to move. Meaningful only when Finished is false.
	User     int64
	Finished bool
}

// State classifies the outcome of a game.
type State int

const (
	InProgress State = iota
	Win
	Tie
)

// Result is the outcome of a game. Winner is meaningful only for Win.
type Result struct {
	State  State
	Winner int64
}

// Instance is a live game holding all of its state.
type Instance interface {
	// Serialize renders the entire state, including whatever history the
	// game keeps. This form is stored in the database and shown to
	// observers, and must round-trip through Type.Deserialize.
	Serialize() string
	// SerializeCurrent renders only what a client needs to pick a move.
	SerializeCurrent() string
	// Turn reports whose move it is.
	Turn() Turn
	// MakeMove applies a move for a user, or returns why it is illegal.
	MakeMove(user int64, move string) error
	// EndState reports the game's outcome.
	EndState() Result
	// Scores returns per-user scores, or nil if the game has none yet.
	Scores() map[int64]float64
}

// Type is a kind of game the server can host, registered by string key at
// boot. It creates instances; it holds no per-game state itself.
type Type interface {
	// New creates a fresh instance for the given players, or nil if a game
	// of this type cannot be played by that many players.
	New(players []int64) Instance
	// Deserialize rebuilds an instance from its serialized form, or nil if
	// the data cannot be parsed for these players.
	Deserialize(data string, players []int64) Instance
}

// TypeMap maps game type names to their implementations.
type TypeMap map[string]Type
