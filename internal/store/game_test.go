package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
)

func gameWithMoveStarted(perMove, suddenDeath, elapsed time.Duration) *Game {
	start := time.Now().Add(-elapsed)
	return &Game{
		ID:               1,
		Time:             TimeCfg{PerMove: perMove, SuddenDeath: suddenDeath},
		CurrentMoveStart: &start,
	}
}

func TestTimeCfgFromMs(t *testing.T) {
	cfg := TimeCfgFromMs(500, 60000)
	assert.Equal(t, 500*time.Millisecond, cfg.PerMove)
	assert.Equal(t, time.Minute, cfg.SuddenDeath)
	assert.Equal(t, int64(500), cfg.PerMoveMs())
	assert.Equal(t, int64(60000), cfg.SuddenDeathMs())
}

func TestCurrentPlayerTimeWithinAllowance(t *testing.T) {
	g := gameWithMoveStarted(10*time.Second, time.Minute, 2*time.Second)
	remaining := g.CurrentPlayerTime(30 * time.Second)

	// the bank is untouched until the per-move allowance runs out
	assert.InDelta(t, (8 * time.Second).Seconds(), remaining.PerMove.Seconds(), 0.5)
	assert.Equal(t, 30*time.Second, remaining.SuddenDeath)
}

func TestCurrentPlayerTimeInSuddenDeath(t *testing.T) {
	g := gameWithMoveStarted(10*time.Second, time.Minute, 15*time.Second)
	remaining := g.CurrentPlayerTime(30 * time.Second)

	assert.Equal(t, time.Duration(0), remaining.PerMove)
	assert.InDelta(t, (25 * time.Second).Seconds(), remaining.SuddenDeath.Seconds(), 0.5)
}

func TestCurrentPlayerTimeNeverNegative(t *testing.T) {
	g := gameWithMoveStarted(time.Second, time.Minute, 2*time.Minute)
	remaining := g.CurrentPlayerTime(10 * time.Second)

	assert.Equal(t, time.Duration(0), remaining.PerMove)
	assert.Equal(t, time.Duration(0), remaining.SuddenDeath)
}

func TestCurrentPlayerTimeNoMoveStarted(t *testing.T) {
	g := &Game{Time: TimeCfg{PerMove: 5 * time.Second, SuddenDeath: time.Minute}}
	remaining := g.CurrentPlayerTime(time.Minute)

	assert.Equal(t, 5*time.Second, remaining.PerMove)
	assert.Equal(t, time.Minute, remaining.SuddenDeath)
}

func TestAdjustPlayerTime(t *testing.T) {
	g := gameWithMoveStarted(time.Second, time.Minute, 3*time.Second)
	players := []models.GamePlayer{
		{UserID: 1, TimeMs: 60000},
		{UserID: 2, TimeMs: 60000},
	}
	adjustPlayerTime(g, players, 1)

	// roughly two seconds past the allowance should be charged to player 1
	assert.InDelta(t, 58000, players[0].TimeMs, 500)
	assert.Equal(t, int64(60000), players[1].TimeMs)
}

func TestAdjustPlayerTimeWithinAllowanceChargesNothing(t *testing.T) {
	g := gameWithMoveStarted(10*time.Second, time.Minute, time.Second)
	players := []models.GamePlayer{{UserID: 1, TimeMs: 60000}}
	adjustPlayerTime(g, players, 1)

	assert.Equal(t, int64(60000), players[0].TimeMs)
}

func TestAdjustPlayerTimeClampsAtZero(t *testing.T) {
	g := gameWithMoveStarted(time.Second, time.Minute, time.Hour)
	players := []models.GamePlayer{{UserID: 1, TimeMs: 60000}}
	adjustPlayerTime(g, players, 1)

	assert.Equal(t, int64(0), players[0].TimeMs)
}

func TestUpdateWaitingForMove(t *testing.T) {
	inst := games.Chess{}.New([]int64{1, 2})
	require.NotNil(t, inst)
	players := []models.GamePlayer{{UserID: 1}, {UserID: 2, WaitingForMove: true}}

	updateWaitingForMove(inst, players)
	assert.True(t, players[0].WaitingForMove)
	assert.False(t, players[1].WaitingForMove)

	winner := int64(1)
	updateWaitingForMove(games.NewEndedInstance(inst, "chess", &winner, "x"), players)
	assert.False(t, players[0].WaitingForMove)
	assert.False(t, players[1].WaitingForMove)
}

func TestGameToDBUnstarted(t *testing.T) {
	g := &Game{ID: 3, OwnerID: 7, GameType: "chess", Time: TimeCfgFromMs(500, 60000)}
	dbg := gameToDB(g)

	assert.Equal(t, int64(3), dbg.ID)
	assert.False(t, dbg.State.Valid)
	assert.False(t, dbg.Finished)
	assert.False(t, dbg.Winner.Valid)
	assert.False(t, dbg.IsTie.Valid)
	assert.Equal(t, int64(500), dbg.DurPerMoveMs)
	assert.Equal(t, int64(60000), dbg.DurSuddenDeathMs)
}

func TestGameToDBFinished(t *testing.T) {
	winner := int64(2)
	g := &Game{
		ID:       3,
		GameType: "chess",
		Instance: games.NewEndedInstance(nil, "chess", &winner, "Time Expired"),
		Time:     TimeCfgFromMs(500, 60000),
	}
	dbg := gameToDB(g)

	require.True(t, dbg.State.Valid)
	assert.Equal(t, "__ENDED_GAME, 2, Time Expired, chess, -", dbg.State.String)
	assert.True(t, dbg.Finished)
	require.True(t, dbg.Winner.Valid)
	assert.Equal(t, int64(2), dbg.Winner.Int64)
	require.True(t, dbg.IsTie.Valid)
	assert.False(t, dbg.IsTie.Bool)
}

func TestGameToDBTie(t *testing.T) {
	g := &Game{
		ID:       4,
		GameType: "chess",
		Instance: games.NewEndedInstance(nil, "chess", nil, "forced"),
		Time:     TimeCfgFromMs(500, 60000),
	}
	dbg := gameToDB(g)

	assert.True(t, dbg.Finished)
	assert.False(t, dbg.Winner.Valid)
	require.True(t, dbg.IsTie.Valid)
	assert.True(t, dbg.IsTie.Bool)
}
