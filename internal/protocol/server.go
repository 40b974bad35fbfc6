package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/playgambit/backend/internal/apikey"
	"github.com/playgambit/backend/internal/games"
)

// Okay is the confirmation sent for commands with no other reply.
const Okay = "okay"

// ErrorMsg renders a command failure.
func ErrorMsg(err error) string {
	return "error " + err.Error()
}

// GenAPIKeyMsg reports a freshly generated api key.
func GenAPIKeyMsg(key apikey.Key) string {
	return "gen_apikey " + key.String()
}

// SelfUserInfoMsg reports the logged in user's account details. Temporary
// users have no email and get "-".
func SelfUserInfoMsg(id int64, name string, email *string) string {
	return fmt.Sprintf("self_user_info %d, %s, %s", id, name, orDash(email))
}

// NewGameMsg reports a created game's id.
func NewGameMsg(id int64) string {
	return fmt.Sprintf("new_game %d", id)
}

// NewGameTmpUsersMsg reports a created game's id followed by the raw api key
// of each temporary user seated in it.
func NewGameTmpUsersMsg(id int64, keys []apikey.Key) string {
	var b strings.Builder
	fmt.Fprintf(&b, "new_game_tmp_users %d", id)
	for _, k := range keys {
		b.WriteString(", ")
		b.WriteString(k.String())
	}
	return b.String()
}

// NewTournamentMsg reports a created tournament's id.
func NewTournamentMsg(id int64) string {
	return fmt.Sprintf("new_tournament %d", id)
}

// GamePlayerInfo is one player entry in a GameMsg. Score is nil until the
// game produces scores; it renders as 0.
type GamePlayerInfo struct {
	ID     int64
	Name   string
	Score  *float64
	TimeMs int64
}

// GameMsg is the full state of a game as broadcast to players and observers.
type GameMsg struct {
	ID               int64
	GameType         string
	Owner            int64
	Started          bool
	Finished         bool
	Winner           games.Result
	SuddenDeathMs    int64
	PerMoveMs        int64
	CurrentMoveStart *int64
	CurrentPlayer    *int64
	Players          []GamePlayerInfo
	State            *string
}

func (m GameMsg) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "game %d, %s, %d, %t, %t, %s, %d, %d, %s, %s, [",
		m.ID, m.GameType, m.Owner, m.Started, m.Finished, resultStr(m.Winner),
		m.SuddenDeathMs, m.PerMoveMs, orDashInt(m.CurrentMoveStart), orDashInt(m.CurrentPlayer))
	for i, p := range m.Players {
		if i > 0 {
			b.WriteString(", ")
		}
		score := 0.0
		if p.Score != nil {
			score = *p.Score
		}
		fmt.Fprintf(&b, "[%d, %s, %s, %d]", p.ID, p.Name, strconv.FormatFloat(score, 'f', -1, 64), p.TimeMs)
	}
	b.WriteString("], ")
	b.WriteString(orDash(m.State))
	return b.String()
}

// TournamentPlayerInfo is one player entry in a TournamentMsg.
type TournamentPlayerInfo struct {
	ID   int64
	Name string
	Win  int
	Loss int
	Tie  int
}

// TournamentMsg is the full state of a tournament as broadcast to players and
// observers. Games is the tournament-type specific rendering of its games.
type TournamentMsg struct {
	ID          int64
	TourneyType string
	Owner       int64
	GameType    string
	Started     bool
	Finished    bool
	Winner      games.Result
	Players     []TournamentPlayerInfo
	Games       string
}

func (m TournamentMsg) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tournament %d, %s, %d, %s, %t, %t, %s, [",
		m.ID, m.TourneyType, m.Owner, m.GameType, m.Started, m.Finished, resultStr(m.Winner))
	for i, p := range m.Players {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[%d, %s, %d, %d, %d]", p.ID, p.Name, p.Win, p.Loss, p.Tie)
	}
	b.WriteString("], ")
	b.WriteString(m.Games)
	return b.String()
}

// GoMsg asks a client to pick a move. TimeMs is the remaining bank and
// TimeForTurnMs the total available this turn.
type GoMsg struct {
	ID            int64
	GameType      string
	TimeMs        int64
	TimeForTurnMs int64
	State         *string
}

func (m GoMsg) String() string {
	return fmt.Sprintf("go %d, %s, %d, %d, %s", m.ID, m.GameType, m.TimeMs, m.TimeForTurnMs, orDash(m.State))
}

// PositionMsg is the legacy protocol's move prompt.
type PositionMsg struct {
	State *string
}

func (m PositionMsg) String() string {
	return "position " + orDash(m.State)
}

// resultStr renders a game outcome: "-" while in progress, the winner's id,
// or "tie".
func resultStr(r games.Result) string {
	switch r.State {
	case games.Win:
		return strconv.FormatInt(r.Winner, 10)
	case games.Tie:
		return "tie"
	default:
		return "-"
	}
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func orDashInt(n *int64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatInt(*n, 10)
}
