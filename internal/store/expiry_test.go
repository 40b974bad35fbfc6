package store

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func gameColumns() []string {
	return []string{"id", "owner_id", "tournament_id", "game_type", "state", "finished",
		"winner", "is_tie", "dur_per_move_ms", "dur_sudden_death_ms", "current_move_start_ms", "turn_id"}
}

func gamePlayerColumns() []string {
	return []string{"id", "game_id", "user_id", "name", "score", "waiting_for_move", "time_ms"}
}

func seatedPlayerRows() *sqlmock.Rows {
	return sqlmock.NewRows(gamePlayerColumns()).
		AddRow(int64(21), int64(5), int64(1), "Alice", nil, true, int64(60000)).
		AddRow(int64(22), int64(5), int64(2), "Bob", nil, false, int64(60000))
}

func TestHandleExpiryStaleTurnIgnored(t *testing.T) {
	db, mock := newMockDB(t)
	s := New(db, games.TypeMap{"three_mens_morris": games.ThreeMensMorris{}},
		nil, nil, nil, make(chan TimeExpiry, 1))

	mock.ExpectQuery(`SELECT \* FROM games WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(gameColumns()).
			AddRow(int64(5), int64(1), nil, "three_mens_morris", ".........,0",
				false, nil, nil, int64(500), int64(60000), nil, int64(42)))
	mock.ExpectQuery(`FROM game_players gp JOIN users u`).
		WithArgs(int64(5)).
		WillReturnRows(seatedPlayerRows())

	// the game has moved on to turn 42; a timer fired for turn 7 no longer
	// counts, and nothing may be written
	require.NoError(t, s.HandleExpiry(TimeExpiry{TurnID: 7, GameID: 5, UserID: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleExpiryEndsGameForOpponent(t *testing.T) {
	db, mock := newMockDB(t)

	var captured *Game
	var capturedPlayers []models.GamePlayer
	s := New(db, games.TypeMap{"three_mens_morris": games.ThreeMensMorris{}}, nil,
		func(g *Game, players []models.GamePlayer, _ *Store) {
			captured = g
			capturedPlayers = players
		}, nil, make(chan TimeExpiry, 1))

	moveStart := time.Now().Add(-2 * time.Minute).UnixMilli()
	mock.ExpectQuery(`SELECT \* FROM games WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(gameColumns()).
			AddRow(int64(5), int64(1), nil, "three_mens_morris", ".........,0",
				false, nil, nil, int64(500), int64(60000), moveStart, int64(42)))
	mock.ExpectQuery(`FROM game_players gp JOIN users u`).
		WithArgs(int64(5)).
		WillReturnRows(seatedPlayerRows())
	mock.ExpectExec(`UPDATE games SET owner_id`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE game_players SET score`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE game_players SET score`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.HandleExpiry(TimeExpiry{TurnID: 42, GameID: 5, UserID: 1}))

	require.NotNil(t, captured)
	ended, ok := captured.Instance.(*games.EndedInstance)
	require.True(t, ok)
	require.NotNil(t, ended.Winner)
	assert.Equal(t, int64(2), *ended.Winner)
	assert.Equal(t, "Time Expired", ended.Reason)
	// two minutes against a 500ms allowance drained the whole bank
	assert.Equal(t, int64(0), capturedPlayers[0].TimeMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
