package ws

import (
	"log"
	"time"

	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
	"github.com/playgambit/backend/internal/protocol"
	"github.com/playgambit/backend/internal/session"
	"github.com/playgambit/backend/internal/store"
)

func timeCfg(perMove, suddenDeath int64) store.TimeCfg {
	return store.TimeCfgFromMs(perMove, suddenDeath)
}

func tournamentCfg(gameType string, perMove, suddenDeath int64) store.TournamentCfg {
	return store.TournamentCfg{GameType: gameType, Time: timeCfg(perMove, suddenDeath)}
}

// gameStateMsg renders a game's full state for observers.
func gameStateMsg(g *store.Game, players []models.GamePlayer) protocol.GameMsg {
	msg := protocol.GameMsg{
		ID:            g.ID,
		GameType:      g.GameType,
		Owner:         g.OwnerID,
		Started:       g.Instance != nil,
		SuddenDeathMs: g.Time.SuddenDeathMs(),
		PerMoveMs:     g.Time.PerMoveMs(),
	}
	if g.CurrentMoveStart != nil {
		startMs := g.CurrentMoveStart.UnixMilli()
		msg.CurrentMoveStart = &startMs
	}
	for _, p := range players {
		info := protocol.GamePlayerInfo{ID: p.UserID, Name: p.Name, TimeMs: p.TimeMs}
		if p.Score.Valid {
			score := p.Score.Float64
			info.Score = &score
		}
		msg.Players = append(msg.Players, info)
	}
	if g.Instance != nil {
		state := g.Instance.Serialize()
		msg.State = &state
		if turn := g.Instance.Turn(); turn.Finished {
			msg.Finished = true
			msg.Winner = g.Instance.EndState()
		} else {
			user := turn.User
			msg.CurrentPlayer = &user
		}
	}
	return msg
}

// gameForPlayerMsg renders a running game as a move prompt for whoever's turn
// it is: "go" with remaining clocks on the current protocol, bare "position"
// on the legacy one.
func gameForPlayerMsg(g *store.Game, players []models.GamePlayer, v protocol.Version) (int64, string, bool) {
	if g.Instance == nil {
		return 0, "", false
	}
	turn := g.Instance.Turn()
	if turn.Finished {
		return 0, "", false
	}

	state := g.Instance.SerializeCurrent()
	if v == protocol.Legacy {
		return turn.User, protocol.PositionMsg{State: &state}.String(), true
	}

	var bank int64
	for _, p := range players {
		if p.UserID == turn.User {
			bank = p.TimeMs
			break
		}
	}
	remaining := g.CurrentPlayerTime(time.Duration(bank) * time.Millisecond)
	msg := protocol.GoMsg{
		ID:            g.ID,
		GameType:      g.GameType,
		TimeMs:        remaining.SuddenDeathMs(),
		TimeForTurnMs: remaining.PerMoveMs(),
		State:         &state,
	}
	return turn.User, msg.String(), true
}

// waitingGameMsgs renders move prompts for every game waiting on the user.
// Legacy clients only handle one game at a time, so they get the oldest.
func (s *Server) waitingGameMsgs(userID int64, v protocol.Version) ([]string, error) {
	ids, err := s.store.FindWaitingGames(userID)
	if err != nil {
		return nil, err
	}
	if v == protocol.Legacy && len(ids) > 1 {
		ids = ids[:1]
	}
	var msgs []string
	for _, id := range ids {
		game, players, err := s.store.FindGame(id)
		if err != nil {
			return nil, err
		}
		if _, msg, ok := gameForPlayerMsg(game, players, v); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// shouldReceivePrompt reports whether a user on a protocol version gets a
// move prompt for this game. Legacy clients only hear about their oldest
// waiting game.
func (s *Server) shouldReceivePrompt(userID, gameID int64, v protocol.Version) bool {
	if v == protocol.Current {
		return true
	}
	oldest, ok, err := s.store.FindOldestWaitingGame(userID)
	if err != nil {
		log.Printf("[WS] oldest waiting game lookup for user %d: %v", userID, err)
		return false
	}
	return ok && oldest == gameID
}

// onGameChanged broadcasts new game state to its observers (and, for
// tournament games, the tournament's observers), then prompts whichever
// player is now on the move.
func (s *Server) onGameChanged(g *store.Game, players []models.GamePlayer, _ *store.Store) {
	state := gameStateMsg(g, players).String()
	s.registry.Publish(session.GameTopic(g.ID), state)
	if g.TournamentID != nil {
		s.registry.Publish(session.TournamentTopic(*g.TournamentID), state)
	}

	for _, v := range []protocol.Version{protocol.Current, protocol.Legacy} {
		userID, msg, ok := gameForPlayerMsg(g, players, v)
		if !ok {
			continue
		}
		if s.shouldReceivePrompt(userID, g.ID, v) {
			s.registry.Publish(session.UserProtoTopic(userID, v), msg)
		}
	}
}

// tournamentMsg renders a tournament's full state for observers.
func (s *Server) tournamentMsg(t *store.Tournament, players []models.TournamentPlayer) (string, error) {
	end, err := t.Instance.EndState(t.Started, t.ID, &t.Cfg, players, s.store)
	if err != nil {
		return "", err
	}
	gamesStr, err := t.Instance.SerializeGames(t.ID, &t.Cfg, s.store)
	if err != nil {
		return "", err
	}

	msg := protocol.TournamentMsg{
		ID:          t.ID,
		TourneyType: t.TournamentType,
		Owner:       t.OwnerID,
		GameType:    t.Cfg.GameType,
		Started:     t.Started,
		Finished:    end.State != games.InProgress,
		Winner:      end,
		Games:       gamesStr,
	}
	for _, p := range players {
		msg.Players = append(msg.Players, protocol.TournamentPlayerInfo{
			ID: p.UserID, Name: p.Name, Win: p.Win, Loss: p.Loss, Tie: p.Tie,
		})
	}
	return msg.String(), nil
}

// onTournamentChanged broadcasts new tournament state to its observers.
func (s *Server) onTournamentChanged(t *store.Tournament, players []models.TournamentPlayer, _ *store.Store) {
	msg, err := s.tournamentMsg(t, players)
	if err != nil {
		msg = protocol.ErrorMsg(err)
	}
	s.registry.Publish(session.TournamentTopic(t.ID), msg)
}
