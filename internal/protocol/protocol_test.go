package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgambit/backend/internal/apikey"
	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/games"
)

func strPtr(s string) *string   { return &s }
func i64Ptr(n int64) *int64     { return &n }
func f64Ptr(f float64) *float64 { return &f }

func TestParseClient(t *testing.T) {
	key, err := apikey.Parse("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	cases := []struct {
		in   string
		want ClientCommand
	}{
		{"version 2", VersionCmd{Version: Current}},
		{"version 1", VersionCmd{Version: Legacy}},
		{"new_user User Name , user@sample.com,password  ", NewUserCmd{Name: "User Name", Email: "user@sample.com", Password: "password"}},
		{"new_tmp_user   Hi  ", NewTmpUserCmd{Name: "Hi"}},
		{"apikey 0123456789abcdef0123456789abcdef", APIKeyCmd{Key: key}},
		{"login sample@example.com,password", LoginCmd{Email: "sample@example.com", Password: "password"}},
		{"logout", LogoutCmd{}},
		{"name New Name", NameCmd{Name: "New Name"}},
		{"password hunter2", PasswordCmd{Password: "hunter2"}},
		{"gen_apikey   ", GenAPIKeyCmd{}},
		{"self_user_info", SelfUserInfoCmd{}},
		{"new_game chess, 1000, 500", NewGameCmd{GameType: "chess", TotalTime: 1000, TimePerMove: 500}},
		{"new_game_tmp_users chess, 1000, 500, 5", NewGameTmpUsersCmd{GameType: "chess", TotalTime: 1000, TimePerMove: 500, NumTmpUsers: 5}},
		{"observe_game 1", ObserveGameCmd{ID: 1}},
		{"stop_observe_game 2", StopObserveGameCmd{ID: 2}},
		{"start_game 3", StartGameCmd{ID: 3}},
		{"join_game 4", JoinGameCmd{ID: 4}},
		{"leave_game 5", LeaveGameCmd{ID: 5}},
		{"play 1, e2e4", PlayCmd{ID: 1, Play: "e2e4"}},
		{"move e2e4", MoveCmd{Move: "e2e4"}},
		{"new_tournament type, game, 100, 200, 2", NewTournamentCmd{TourneyType: "type", GameType: "game", TotalTime: 100, TimePerMove: 200, Options: "2"}},
		{"join_tournament 1", JoinTournamentCmd{ID: 1}},
		{"leave_tournament 1", LeaveTournamentCmd{ID: 1}},
		{"start_tournament 1", StartTournamentCmd{ID: 1}},
		{"observe_tournament 1", ObserveTournamentCmd{ID: 1}},
		{"stop_observe_tournament 1", StopObserveTournamentCmd{ID: 1}},
	}
	for _, c := range cases {
		got, err := ParseClient(c.in)
		require.NoError(t, err, "command %q", c.in)
		assert.Equal(t, c.want, got, "command %q", c.in)
	}
}

func TestParseClientErrors(t *testing.T) {
	_, err := ParseClient("version 0")
	assert.Equal(t, errs.ErrInvalidProtocolVersion, err)

	_, err = ParseClient("random_cmd")
	assert.EqualError(t, err, "unrecognized command: random_cmd")

	_, err = ParseClient("new_user test, hi")
	assert.EqualError(t, err, "invalid number of arguments for command new_user - expected 3, found 2")

	_, err = ParseClient("apikey hello")
	assert.Equal(t, errs.ErrMalformedAPIKey, err)

	_, err = ParseClient("observe_game game")
	assert.Equal(t, errs.ErrInvalidNumberID, err)
}

func TestServerMessages(t *testing.T) {
	assert.Equal(t, "okay", Okay)
	assert.Equal(t, "error invalid api key", ErrorMsg(errs.ErrInvalidAPIKey))

	key, err := apikey.Parse("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "gen_apikey aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", GenAPIKeyMsg(key))

	assert.Equal(t,
		"self_user_info 5, user, sample@example.com",
		SelfUserInfoMsg(5, "user", strPtr("sample@example.com")))
	assert.Equal(t, "self_user_info 5, user, -", SelfUserInfoMsg(5, "user", nil))

	assert.Equal(t, "new_game 1", NewGameMsg(1))
	assert.Equal(t, "new_tournament 1", NewTournamentMsg(1))

	keyB, err := apikey.Parse("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, err)
	assert.Equal(t,
		"new_game_tmp_users 7, aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa, bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		NewGameTmpUsersMsg(7, []apikey.Key{key, keyB}))
}

func TestGameMsg(t *testing.T) {
	msg := GameMsg{
		ID:               1,
		GameType:         "some_game",
		Owner:            2,
		Started:          true,
		Finished:         true,
		Winner:           games.Result{State: games.Tie},
		SuddenDeathMs:    200,
		PerMoveMs:        100,
		CurrentMoveStart: i64Ptr(150),
		CurrentPlayer:    i64Ptr(3),
		Players: []GamePlayerInfo{
			{ID: 3, Name: "Name1", Score: f64Ptr(0.5), TimeMs: 1},
			{ID: 4, Name: "Name2", Score: f64Ptr(4.5), TimeMs: 2},
			{ID: 5, Name: "Name3", TimeMs: 3},
		},
		State: strPtr("STATE"),
	}
	assert.Equal(t,
		"game 1, some_game, 2, true, true, tie, 200, 100, 150, 3, [[3, Name1, 0.5, 1], [4, Name2, 4.5, 2], [5, Name3, 0, 3]], STATE",
		msg.String())

	waiting := GameMsg{
		ID:            2,
		GameType:      "chess",
		Owner:         9,
		Winner:        games.Result{State: games.InProgress},
		SuddenDeathMs: 1000,
		PerMoveMs:     100,
	}
	assert.Equal(t,
		"game 2, chess, 9, false, false, -, 1000, 100, -, -, [], -",
		waiting.String())
}

func TestTournamentMsg(t *testing.T) {
	msg := TournamentMsg{
		ID:          1,
		TourneyType: "type",
		Owner:       2,
		GameType:    "game",
		Started:     true,
		Finished:    true,
		Winner:      games.Result{State: games.Tie},
		Players: []TournamentPlayerInfo{
			{ID: 3, Name: "Name1", Win: 4, Loss: 5, Tie: 6},
			{ID: 7, Name: "Name2", Win: 8, Loss: 9, Tie: 10},
		},
		Games: "GAMES",
	}
	assert.Equal(t,
		"tournament 1, type, 2, game, true, true, tie, [[3, Name1, 4, 5, 6], [7, Name2, 8, 9, 10]], GAMES",
		msg.String())
}

func TestGoAndPositionMsgs(t *testing.T) {
	msg := GoMsg{ID: 1, GameType: "some_game", TimeMs: 1234, TimeForTurnMs: 321, State: strPtr("STATE")}
	assert.Equal(t, "go 1, some_game, 1234, 321, STATE", msg.String())
	assert.Equal(t, "position STATE", PositionMsg{State: strPtr("STATE")}.String())
	assert.Equal(t, "position -", PositionMsg{}.String())
}

func TestWinnerRendering(t *testing.T) {
	assert.Equal(t, "-", resultStr(games.Result{State: games.InProgress}))
	assert.Equal(t, "12", resultStr(games.Result{State: games.Win, Winner: 12}))
	assert.Equal(t, "tie", resultStr(games.Result{State: games.Tie}))
}
