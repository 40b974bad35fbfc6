package ws

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/protocol"
	"github.com/playgambit/backend/internal/store"
)

func TestObserveCommandsRequireLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	srv := NewServer(sqlx.NewDb(db, "postgres"),
		games.TypeMap{"three_mens_morris": games.ThreeMensMorris{}},
		nil, make(chan store.TimeExpiry, 1))
	srv.registry.AddClient("1.2.3.4:5", make(chan []byte, 1))

	cmds := []protocol.ClientCommand{
		protocol.ObserveGameCmd{ID: 1},
		protocol.StopObserveGameCmd{ID: 1},
		protocol.ObserveTournamentCmd{ID: 1},
		protocol.StopObserveTournamentCmd{ID: 1},
	}
	for _, cmd := range cmds {
		_, err := srv.dispatch("1.2.3.4:5", cmd)
		assert.ErrorIs(t, err, errs.ErrNotLoggedIn, "%T", cmd)
	}
	// rejected before any lookup
	assert.NoError(t, mock.ExpectationsWereMet())
}
