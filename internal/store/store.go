// Package store is the persistence layer. It loads games and tournaments from
// postgres into live in-memory values, applies operations to them, and writes
// them back. Mutating operations invoke change callbacks so the transport can
// broadcast new state without the store knowing about connections.
package store

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
)

// TimeCfg is the time control for a game: a per-move allowance that refreshes
// every turn, and a sudden death bank drawn down once the allowance runs out.
type TimeCfg struct {
	PerMove     time.Duration
	SuddenDeath time.Duration
}

// TimeCfgFromMs builds a time control from whole milliseconds.
func TimeCfgFromMs(perMove, suddenDeath int64) TimeCfg {
	return TimeCfg{
		PerMove:     time.Duration(perMove) * time.Millisecond,
		SuddenDeath: time.Duration(suddenDeath) * time.Millisecond,
	}
}

func (c TimeCfg) PerMoveMs() int64     { return c.PerMove.Milliseconds() }
func (c TimeCfg) SuddenDeathMs() int64 { return c.SuddenDeath.Milliseconds() }

// TimeExpiry reports that a player's clock may have run out. It is only valid
// if the game is still on the turn it was scheduled for.
type TimeExpiry struct {
	TurnID int64
	GameID int64
	UserID int64
}

// TournamentCfg is the configuration shared by all games in a tournament.
type TournamentCfg struct {
	GameType string
	Time     TimeCfg
}

// TournamentType creates tournament instances from their serialized options.
type TournamentType interface {
	New(options string, cfg *TournamentCfg) (TournamentInstance, error)
}

// TournamentInstance is the scheduling logic of one tournament. It is rebuilt
// from its options string on every load, so it holds only configuration, not
// progress; progress lives in the tournament's games and players.
type TournamentInstance interface {
	// Serialize renders the options this instance was built from.
	Serialize(cfg *TournamentCfg) string
	// SerializeGames renders the tournament's games for the wire.
	SerializeGames(id int64, cfg *TournamentCfg, s *Store) (string, error)
	// Advance creates or starts games as needed. Called when the tournament
	// starts and after each of its games finishes.
	Advance(id, owner int64, cfg *TournamentCfg, players []models.TournamentPlayer, s *Store) error
	// EndState reports whether the tournament has a winner yet.
	EndState(started bool, id int64, cfg *TournamentCfg, players []models.TournamentPlayer, s *Store) (games.Result, error)
}

// TournamentTypeMap maps tournament type names to their implementations.
type TournamentTypeMap map[string]TournamentType

// Game is the live form of a game. Instance is nil until the game starts.
type Game struct {
	ID               int64
	OwnerID          int64
	TournamentID     *int64
	GameType         string
	Instance         games.Instance
	Time             TimeCfg
	CurrentMoveStart *time.Time
	TurnID           *int64
}

// ElapsedSinceMoveStart is how long the current move has been running.
func (g *Game) ElapsedSinceMoveStart() time.Duration {
	if g.CurrentMoveStart == nil {
		return 0
	}
	elapsed := time.Since(*g.CurrentMoveStart)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// elapsedSuddenDeath is the portion of elapsed move time charged against the
// sudden death bank, after the free per-move allowance.
func (g *Game) elapsedSuddenDeath(elapsed time.Duration) time.Duration {
	charged := elapsed - g.Time.PerMove
	if charged < 0 {
		return 0
	}
	return charged
}

// CurrentPlayerTime is the active player's remaining per-move allowance and
// sudden death bank, given the bank they started the move with.
func (g *Game) CurrentPlayerTime(bank time.Duration) TimeCfg {
	elapsed := g.ElapsedSinceMoveStart()
	perMove := g.Time.PerMove - elapsed
	if perMove < 0 {
		perMove = 0
	}
	remaining := bank - g.elapsedSuddenDeath(elapsed)
	if remaining < 0 {
		remaining = 0
	}
	return TimeCfg{PerMove: perMove, SuddenDeath: remaining}
}

// Tournament is the live form of a tournament.
type Tournament struct {
	ID             int64
	OwnerID        int64
	TournamentType string
	Cfg            TournamentCfg
	Instance       TournamentInstance
	Started        bool
}

// GameChangedFn is called after a game's stored state changes.
type GameChangedFn func(g *Game, players []models.GamePlayer, s *Store)

// TournamentChangedFn is called after a tournament's stored state changes.
type TournamentChangedFn func(t *Tournament, players []models.TournamentPlayer, s *Store)

// Store bundles the database pool with the registered game and tournament
// types, the change callbacks, and the expiry channel move timers report to.
type Store struct {
	db                  *sqlx.DB
	gameTypes           games.TypeMap
	tournamentTypes     TournamentTypeMap
	onGameChanged       GameChangedFn
	onTournamentChanged TournamentChangedFn
	expiry              chan<- TimeExpiry
}

func New(
	db *sqlx.DB,
	gameTypes games.TypeMap,
	tournamentTypes TournamentTypeMap,
	onGameChanged GameChangedFn,
	onTournamentChanged TournamentChangedFn,
	expiry chan<- TimeExpiry,
) *Store {
	if onGameChanged == nil {
		onGameChanged = func(*Game, []models.GamePlayer, *Store) {}
	}
	if onTournamentChanged == nil {
		onTournamentChanged = func(*Tournament, []models.TournamentPlayer, *Store) {}
	}
	return &Store{
		db:                  db,
		gameTypes:           gameTypes,
		tournamentTypes:     tournamentTypes,
		onGameChanged:       onGameChanged,
		onTournamentChanged: onTournamentChanged,
		expiry:              expiry,
	}
}

// WithoutCallbacks derives a store whose mutations publish nothing. Used when
// a caller makes several changes and only wants the last one announced.
func (s *Store) WithoutCallbacks() *Store {
	return New(s.db, s.gameTypes, s.tournamentTypes, nil, nil, s.expiry)
}
