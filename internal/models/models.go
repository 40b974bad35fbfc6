package models

import "database/sql"

// User represents an account in the system. Users with no email/password are
// temporary users, addressable only by api key.
type User struct {
	ID           int64          `db:"id"`
	Email        sql.NullString `db:"email"`
	Name         string         `db:"name"`
	PasswordHash sql.NullString `db:"password_hash"`
	APIKeyHash   string         `db:"api_key_hash"`
}

// DBGame is the durable form of a game. The live instance is kept in the
// state column and rebuilt on each access.
type DBGame struct {
	ID                 int64          `db:"id"`
	OwnerID            int64          `db:"owner_id"`
	TournamentID       sql.NullInt64  `db:"tournament_id"`
	GameType           string         `db:"game_type"`
	State              sql.NullString `db:"state"`
	Finished           bool           `db:"finished"`
	Winner             sql.NullInt64  `db:"winner"`
	IsTie              sql.NullBool   `db:"is_tie"`
	DurPerMoveMs       int64          `db:"dur_per_move_ms"`
	DurSuddenDeathMs   int64          `db:"dur_sudden_death_ms"`
	CurrentMoveStartMs sql.NullInt64  `db:"current_move_start_ms"`
	TurnID             sql.NullInt64  `db:"turn_id"`
}

// GamePlayer is a user's membership in a game. TimeMs is the remaining
// sudden-death bank. Name is joined in from the users table on reads.
type GamePlayer struct {
	ID             int64           `db:"id"`
	GameID         int64           `db:"game_id"`
	UserID         int64           `db:"user_id"`
	Name           string          `db:"name"`
	Score          sql.NullFloat64 `db:"score"`
	WaitingForMove bool            `db:"waiting_for_move"`
	TimeMs         int64           `db:"time_ms"`
}

// DBTournament is the durable form of a tournament.
type DBTournament struct {
	ID               int64         `db:"id"`
	OwnerID          int64         `db:"owner_id"`
	TournamentType   string        `db:"tournament_type"`
	GameType         string        `db:"game_type"`
	DurPerMoveMs     int64         `db:"dur_per_move_ms"`
	DurSuddenDeathMs int64         `db:"dur_sudden_death_ms"`
	Started          bool          `db:"started"`
	Finished         bool          `db:"finished"`
	Winner           sql.NullInt64 `db:"winner"`
	Options          string        `db:"options"`
}

// TournamentPlayer is a user's membership and running score in a tournament.
// Name is joined in from the users table on reads.
type TournamentPlayer struct {
	ID           int64  `db:"id"`
	TournamentID int64  `db:"tournament_id"`
	UserID       int64  `db:"user_id"`
	Name         string `db:"name"`
	Win          int    `db:"win"`
	Loss         int    `db:"loss"`
	Tie          int    `db:"tie"`
}
