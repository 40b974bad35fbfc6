// Package tournament implements the tournament scheduling types the server
// registers at boot.
package tournament

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
	"github.com/playgambit/backend/internal/store"
)

// RoundRobin schedules one game for every ordered selection of players, so
// each player meets every opponent in every seat order. Its options string is
// the number of players per game. MaxActiveGames caps how many running games
// a player may be in at once; further games wait until earlier ones finish.
type RoundRobin struct {
	MaxActiveGames int
}

func (r RoundRobin) New(options string, cfg *store.TournamentCfg) (store.TournamentInstance, error) {
	k, err := strconv.Atoi(strings.TrimSpace(options))
	if err != nil || k < 1 {
		return nil, errs.ErrInvalidNumberID
	}
	maxActive := r.MaxActiveGames
	if maxActive < 1 {
		maxActive = 1
	}
	return &roundRobinInstance{playersPerGame: k, maxActiveGames: maxActive}, nil
}

type roundRobinInstance struct {
	playersPerGame int
	maxActiveGames int
}

func (r *roundRobinInstance) Serialize(cfg *store.TournamentCfg) string {
	return strconv.Itoa(r.playersPerGame)
}

func (r *roundRobinInstance) SerializeGames(id int64, cfg *store.TournamentCfg, s *store.Store) (string, error) {
	dbgames, err := s.FindTournamentGames(id)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, g := range dbgames {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", g.ID)
	}
	b.WriteByte(']')
	return b.String(), nil
}

// orderedSelections enumerates every ordered selection of k distinct players.
func orderedSelections(players []models.TournamentPlayer, k int) [][]models.TournamentPlayer {
	if k > len(players) {
		return nil
	}
	var result [][]models.TournamentPlayer
	used := make([]bool, len(players))
	current := make([]models.TournamentPlayer, 0, k)
	var pick func()
	pick = func() {
		if len(current) == k {
			result = append(result, append([]models.TournamentPlayer(nil), current...))
			return
		}
		for i := range players {
			if used[i] {
				continue
			}
			used[i] = true
			current = append(current, players[i])
			pick()
			current = current[:len(current)-1]
			used[i] = false
		}
	}
	pick()
	return result
}

// createGames makes one unstarted game per player selection. Only the last
// join of each game is announced, so observers see each game once, complete.
func (r *roundRobinInstance) createGames(id, owner int64, cfg *store.TournamentCfg, players []models.TournamentPlayer, s *store.Store) error {
	quiet := s.WithoutCallbacks()
	for _, seated := range orderedSelections(players, r.playersPerGame) {
		game, err := quiet.NewGame(cfg.GameType, owner, cfg.Time, &id)
		if err != nil {
			return err
		}
		for i, player := range seated {
			joiner := quiet
			if i == len(seated)-1 {
				joiner = s
			}
			if err := joiner.JoinGame(game.ID, player.UserID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *roundRobinInstance) Advance(id, owner int64, cfg *store.TournamentCfg, players []models.TournamentPlayer, s *store.Store) error {
	if len(players) == 0 {
		return nil
	}
	// a game seats playersPerGame distinct players, so fewer players than
	// that yields no selections and nothing can ever be scheduled
	if len(players) < r.playersPerGame {
		return errs.ErrInvalidNumberOfPlayers
	}
	dbgames, err := s.FindTournamentGames(id)
	if err != nil {
		return err
	}
	// on first advance there are no games yet: create them, then recurse to
	// start the first wave
	if len(dbgames) == 0 {
		if err := r.createGames(id, owner, cfg, players, s); err != nil {
			return err
		}
		return r.Advance(id, owner, cfg, players, s)
	}

	type gameAndPlayers struct {
		game    *store.Game
		players []models.GamePlayer
	}
	loaded := make([]gameAndPlayers, 0, len(dbgames))
	for _, dbg := range dbgames {
		game, gamePlayers, err := s.GameAndPlayers(dbg)
		if err != nil {
			return err
		}
		loaded = append(loaded, gameAndPlayers{game: game, players: gamePlayers})
	}

	activeGames := make(map[int64]int, len(players))
	for _, p := range players {
		activeGames[p.UserID] = 0
	}
	for _, gp := range loaded {
		if gp.game.Instance == nil || gp.game.Instance.Turn().Finished {
			continue
		}
		for _, p := range gp.players {
			if _, ok := activeGames[p.UserID]; ok {
				activeGames[p.UserID]++
			}
		}
	}

	// start every unstarted game whose players all have spare capacity
	for _, gp := range loaded {
		if gp.game.Instance != nil {
			continue
		}
		busy := false
		for _, p := range gp.players {
			if activeGames[p.UserID] >= r.maxActiveGames {
				busy = true
				break
			}
		}
		if busy {
			continue
		}
		if err := s.StartGame(gp.game.ID, owner); err != nil {
			return err
		}
		for _, p := range gp.players {
			activeGames[p.UserID]++
		}
	}
	return nil
}

func (r *roundRobinInstance) EndState(started bool, id int64, cfg *store.TournamentCfg, players []models.TournamentPlayer, s *store.Store) (games.Result, error) {
	if !started {
		return games.Result{State: games.InProgress}, nil
	}
	if len(players) == 0 {
		return games.Result{State: games.Tie}, nil
	}

	dbgames, err := s.FindTournamentGames(id)
	if err != nil {
		return games.Result{}, err
	}
	if len(dbgames) == 0 {
		return games.Result{State: games.InProgress}, nil
	}
	for _, g := range dbgames {
		if !g.Finished {
			return games.Result{State: games.InProgress}, nil
		}
	}

	// standing is wins minus losses; a shared best score is a tie
	current, err := s.FindTournamentPlayers(id)
	if err != nil {
		return games.Result{}, err
	}
	var best int
	var winners []int64
	for i, p := range current {
		score := p.Win - p.Loss
		if i == 0 || score > best {
			best = score
			winners = winners[:0]
			winners = append(winners, p.UserID)
		} else if score == best {
			winners = append(winners, p.UserID)
		}
	}
	if len(winners) == 1 {
		return games.Result{State: games.Win, Winner: winners[0]}, nil
	}
	return games.Result{State: games.Tie}, nil
}
