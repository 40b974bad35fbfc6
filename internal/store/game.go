package store

import (
	"database/sql"
	"errors"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
)

// gameFromDB rebuilds a live game from its stored row. A state carrying the
// ended-game marker deserializes through the ended game type no matter what
// game_type says.
func (s *Store) gameFromDB(dbg models.DBGame, playerIDs []int64) *Game {
	var instance games.Instance
	if dbg.State.Valid {
		if strings.HasPrefix(dbg.State.String, games.EndedGamePrefix) {
			instance = games.Ended{}.Deserialize(dbg.State.String, playerIDs)
		} else if t, ok := s.gameTypes[dbg.GameType]; ok {
			instance = t.Deserialize(dbg.State.String, playerIDs)
		}
	}

	g := &Game{
		ID:       dbg.ID,
		OwnerID:  dbg.OwnerID,
		GameType: dbg.GameType,
		Instance: instance,
		Time:     TimeCfgFromMs(dbg.DurPerMoveMs, dbg.DurSuddenDeathMs),
	}
	if dbg.TournamentID.Valid {
		id := dbg.TournamentID.Int64
		g.TournamentID = &id
	}
	if dbg.CurrentMoveStartMs.Valid {
		start := time.UnixMilli(dbg.CurrentMoveStartMs.Int64)
		g.CurrentMoveStart = &start
	}
	if dbg.TurnID.Valid {
		turnID := dbg.TurnID.Int64
		g.TurnID = &turnID
	}
	return g
}

// gameToDB renders a live game back into its stored row.
func gameToDB(g *Game) models.DBGame {
	dbg := models.DBGame{
		ID:               g.ID,
		OwnerID:          g.OwnerID,
		GameType:         g.GameType,
		DurPerMoveMs:     g.Time.PerMoveMs(),
		DurSuddenDeathMs: g.Time.SuddenDeathMs(),
	}
	if g.TournamentID != nil {
		dbg.TournamentID = sql.NullInt64{Int64: *g.TournamentID, Valid: true}
	}
	if g.CurrentMoveStart != nil {
		dbg.CurrentMoveStartMs = sql.NullInt64{Int64: g.CurrentMoveStart.UnixMilli(), Valid: true}
	}
	if g.TurnID != nil {
		dbg.TurnID = sql.NullInt64{Int64: *g.TurnID, Valid: true}
	}
	if g.Instance != nil {
		dbg.State = sql.NullString{String: g.Instance.Serialize(), Valid: true}
		if g.Instance.Turn().Finished {
			dbg.Finished = true
			switch end := g.Instance.EndState(); end.State {
			case games.Win:
				dbg.Winner = sql.NullInt64{Int64: end.Winner, Valid: true}
				dbg.IsTie = sql.NullBool{Bool: false, Valid: true}
			case games.Tie:
				dbg.IsTie = sql.NullBool{Bool: true, Valid: true}
			}
		}
	}
	return dbg
}

// NewGame creates an unstarted game row.
func (s *Store) NewGame(gameType string, owner int64, timeCfg TimeCfg, tournamentID *int64) (models.DBGame, error) {
	if _, ok := s.gameTypes[gameType]; !ok {
		return models.DBGame{}, errs.NoSuchGameType(gameType)
	}
	dbg := models.DBGame{
		OwnerID:          owner,
		GameType:         gameType,
		DurPerMoveMs:     timeCfg.PerMoveMs(),
		DurSuddenDeathMs: timeCfg.SuddenDeathMs(),
	}
	if tournamentID != nil {
		dbg.TournamentID = sql.NullInt64{Int64: *tournamentID, Valid: true}
	}
	err := s.db.QueryRowx(
		`INSERT INTO games (owner_id, tournament_id, game_type, state, finished, winner, is_tie,
		                    dur_per_move_ms, dur_sudden_death_ms, current_move_start_ms, turn_id)
		 VALUES ($1, $2, $3, NULL, false, NULL, NULL, $4, $5, NULL, NULL) RETURNING id`,
		dbg.OwnerID, dbg.TournamentID, dbg.GameType, dbg.DurPerMoveMs, dbg.DurSuddenDeathMs,
	).Scan(&dbg.ID)
	if err != nil {
		return models.DBGame{}, errs.Database(err)
	}
	return dbg, nil
}

func (s *Store) findDBGame(id int64) (models.DBGame, error) {
	var dbg models.DBGame
	err := s.db.Get(&dbg, `SELECT * FROM games WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DBGame{}, errs.ErrNoSuchGame
	}
	if err != nil {
		return models.DBGame{}, errs.Database(err)
	}
	return dbg, nil
}

// FindGame loads a game and its players.
func (s *Store) FindGame(id int64) (*Game, []models.GamePlayer, error) {
	dbg, err := s.findDBGame(id)
	if err != nil {
		return nil, nil, err
	}
	return s.GameAndPlayers(dbg)
}

// GameAndPlayers rebuilds a live game plus player list from a stored row.
func (s *Store) GameAndPlayers(dbg models.DBGame) (*Game, []models.GamePlayer, error) {
	players, err := s.FindGamePlayers(dbg.ID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, len(players))
	for i, p := range players {
		ids[i] = p.UserID
	}
	return s.gameFromDB(dbg, ids), players, nil
}

// FindGamePlayers loads a game's players in join order, with names attached.
func (s *Store) FindGamePlayers(gameID int64) ([]models.GamePlayer, error) {
	players := []models.GamePlayer{}
	err := s.db.Select(&players,
		`SELECT gp.id, gp.game_id, gp.user_id, u.name AS name, gp.score, gp.waiting_for_move, gp.time_ms
		 FROM game_players gp JOIN users u ON u.id = gp.user_id
		 WHERE gp.game_id = $1 ORDER BY gp.id ASC`, gameID)
	if err != nil {
		return nil, errs.Database(err)
	}
	return players, nil
}

func (s *Store) findGamePlayer(gameID, userID int64) (models.GamePlayer, error) {
	var player models.GamePlayer
	err := s.db.Get(&player,
		`SELECT gp.id, gp.game_id, gp.user_id, u.name AS name, gp.score, gp.waiting_for_move, gp.time_ms
		 FROM game_players gp JOIN users u ON u.id = gp.user_id
		 WHERE gp.game_id = $1 AND gp.user_id = $2`, gameID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GamePlayer{}, errs.ErrNotInGame
	}
	if err != nil {
		return models.GamePlayer{}, errs.Database(err)
	}
	return player, nil
}

func (s *Store) userInGame(gameID, userID int64) (bool, error) {
	_, err := s.findGamePlayer(gameID, userID)
	if errors.Is(err, errs.ErrNotInGame) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// JoinGame seats a user in an unstarted game. Their sudden death bank starts
// at the game's full allotment.
func (s *Store) JoinGame(gameID, userID int64) error {
	joined, err := s.userInGame(gameID, userID)
	if err != nil {
		return err
	}
	if joined {
		return errs.ErrAlreadyInGame
	}
	game, players, err := s.FindGame(gameID)
	if err != nil {
		return err
	}
	if game.Instance != nil {
		return errs.ErrGameAlreadyStarted
	}

	player := models.GamePlayer{
		GameID: gameID,
		UserID: userID,
		TimeMs: game.Time.SuddenDeathMs(),
	}
	err = s.db.QueryRowx(
		`INSERT INTO game_players (game_id, user_id, score, waiting_for_move, time_ms)
		 VALUES ($1, $2, NULL, false, $3) RETURNING id, (SELECT name FROM users WHERE id = $2)`,
		gameID, userID, player.TimeMs,
	).Scan(&player.ID, &player.Name)
	if err != nil {
		return errs.Database(err)
	}

	players = append(players, player)
	s.onGameChanged(game, players, s)
	return nil
}

// LeaveGame removes a user from an unstarted game.
func (s *Store) LeaveGame(gameID, userID int64) error {
	player, err := s.findGamePlayer(gameID, userID)
	if err != nil {
		return err
	}
	game, players, err := s.FindGame(gameID)
	if err != nil {
		return err
	}
	if game.Instance != nil {
		return errs.ErrGameAlreadyStarted
	}

	if _, err := s.db.Exec(`DELETE FROM game_players WHERE id = $1`, player.ID); err != nil {
		return errs.Database(err)
	}
	for i := range players {
		if players[i].UserID == userID {
			players = append(players[:i], players[i+1:]...)
			break
		}
	}
	s.onGameChanged(game, players, s)
	return nil
}

func (s *Store) saveDBGame(dbg models.DBGame) error {
	_, err := s.db.Exec(
		`UPDATE games SET owner_id = $1, tournament_id = $2, game_type = $3, state = $4,
		        finished = $5, winner = $6, is_tie = $7, dur_per_move_ms = $8,
		        dur_sudden_death_ms = $9, current_move_start_ms = $10, turn_id = $11
		 WHERE id = $12`,
		dbg.OwnerID, dbg.TournamentID, dbg.GameType, dbg.State, dbg.Finished, dbg.Winner,
		dbg.IsTie, dbg.DurPerMoveMs, dbg.DurSuddenDeathMs, dbg.CurrentMoveStartMs, dbg.TurnID, dbg.ID)
	if err != nil {
		return errs.Database(err)
	}
	return nil
}

func (s *Store) saveGamePlayer(p models.GamePlayer) error {
	_, err := s.db.Exec(
		`UPDATE game_players SET score = $1, waiting_for_move = $2, time_ms = $3 WHERE id = $4`,
		p.Score, p.WaitingForMove, p.TimeMs, p.ID)
	if err != nil {
		return errs.Database(err)
	}
	return nil
}

// FindWaitingGames lists games waiting on a user to move, oldest first.
func (s *Store) FindWaitingGames(userID int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.Select(&ids,
		`SELECT game_id FROM game_players WHERE user_id = $1 AND waiting_for_move = true ORDER BY id ASC`,
		userID)
	if err != nil {
		return nil, errs.Database(err)
	}
	return ids, nil
}

// FindOldestWaitingGame reports the single oldest game waiting on a user, if
// any. Legacy protocol clients can only consider one game at a time.
func (s *Store) FindOldestWaitingGame(userID int64) (int64, bool, error) {
	var id int64
	err := s.db.Get(&id,
		`SELECT game_id FROM game_players WHERE user_id = $1 AND waiting_for_move = true ORDER BY id ASC LIMIT 1`,
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errs.Database(err)
	}
	return id, true, nil
}

func updateWaitingForMove(inst games.Instance, players []models.GamePlayer) {
	turn := inst.Turn()
	for i := range players {
		players[i].WaitingForMove = !turn.Finished && players[i].UserID == turn.User
	}
}

// SaveGameAndPlayers writes a game and its player records, refreshing
// waiting-for-move flags and scores from the instance first.
func (s *Store) SaveGameAndPlayers(g *Game, players []models.GamePlayer) error {
	if err := s.saveDBGame(gameToDB(g)); err != nil {
		return err
	}
	if g.Instance != nil {
		updateWaitingForMove(g.Instance, players)
		if scores := g.Instance.Scores(); scores != nil {
			for i := range players {
				if score, ok := scores[players[i].UserID]; ok {
					players[i].Score = sql.NullFloat64{Float64: score, Valid: true}
				}
			}
		}
		for _, p := range players {
			if err := s.saveGamePlayer(p); err != nil {
				return err
			}
		}
	}
	s.onGameChanged(g, players, s)
	return nil
}

// SaveGame writes a game back, loading its players first.
func (s *Store) SaveGame(g *Game) error {
	players, err := s.FindGamePlayers(g.ID)
	if err != nil {
		return err
	}
	return s.SaveGameAndPlayers(g, players)
}

// startGameTimer assigns the move a fresh turn id and schedules an expiry
// check for when the player's allowance plus bank will have run out. A timer
// whose turn id no longer matches the game is ignored on delivery.
func (s *Store) startGameTimer(g *Game, players []models.GamePlayer) {
	turnID := rand.Int63()
	g.TurnID = &turnID

	if g.Instance == nil {
		return
	}
	turn := g.Instance.Turn()
	if turn.Finished {
		return
	}

	var bank time.Duration
	for _, p := range players {
		if p.UserID == turn.User {
			bank = time.Duration(p.TimeMs) * time.Millisecond
			break
		}
	}

	expiry := s.expiry
	gameID := g.ID
	userID := turn.User
	time.AfterFunc(g.Time.PerMove+bank, func() {
		expiry <- TimeExpiry{TurnID: turnID, GameID: gameID, UserID: userID}
	})
	now := time.Now()
	g.CurrentMoveStart = &now
}

// adjustPlayerTime debits the current player's bank for time spent on the
// move beyond the per-move allowance.
func adjustPlayerTime(g *Game, players []models.GamePlayer, currentUser int64) {
	charged := g.elapsedSuddenDeath(g.ElapsedSinceMoveStart())
	if charged <= 0 {
		return
	}
	for i := range players {
		if players[i].UserID == currentUser {
			players[i].TimeMs -= charged.Milliseconds()
			if players[i].TimeMs < 0 {
				players[i].TimeMs = 0
			}
			break
		}
	}
}

// StartGame instantiates an unstarted game and begins timing its first move.
// Only the owner may start a game.
func (s *Store) StartGame(gameID, userID int64) error {
	game, players, err := s.FindGame(gameID)
	if err != nil {
		return err
	}
	if game.OwnerID != userID {
		return errs.ErrDontOwnGame
	}
	if game.Instance != nil {
		return errs.ErrGameAlreadyStarted
	}

	ids := make([]int64, len(players))
	for i, p := range players {
		ids[i] = p.UserID
	}
	instance := s.gameTypes[game.GameType].New(ids)
	if instance == nil {
		return errs.ErrInvalidNumberOfPlayers
	}
	game.Instance = instance
	s.startGameTimer(game, players)
	return s.SaveGame(game)
}

// EndGame forcibly terminates a game, charging the active player for time
// spent on the unfinished move and recording the winner and reason.
func (s *Store) EndGame(g *Game, players []models.GamePlayer, winner *int64, reason string) error {
	prev := g.Instance
	if prev != nil {
		if turn := prev.Turn(); !turn.Finished {
			adjustPlayerTime(g, players, turn.User)
		}
	}
	g.Instance = games.NewEndedInstance(prev, g.GameType, winner, reason)
	if err := s.SaveGameAndPlayers(g, players); err != nil {
		return err
	}
	return s.handleGameEnd(g, players)
}

// MakeMove applies a player's move, charges their clock, and hands the turn
// (and its timer) to the next player. If the move ends a tournament game, the
// tournament's scores advance too.
func (s *Store) MakeMove(gameID, userID int64, play string) error {
	game, players, err := s.FindGame(gameID)
	if err != nil {
		return err
	}
	wasFinished := game.Instance != nil && game.Instance.Turn().Finished

	moveErr := s.applyMove(game, players, userID, play)

	// settle the tournament only on the move that finished the game; a
	// replay against an already finished game must not touch the standings
	if !wasFinished && game.Instance != nil && game.Instance.Turn().Finished {
		if err := s.handleGameEnd(game, players); err != nil {
			return err
		}
	}
	return moveErr
}

func (s *Store) applyMove(game *Game, players []models.GamePlayer, userID int64, play string) error {
	if game.Instance == nil {
		return errs.ErrNotTurn
	}
	turn := game.Instance.Turn()
	if turn.Finished || turn.User != userID {
		return errs.ErrNotTurn
	}
	if err := game.Instance.MakeMove(userID, play); err != nil {
		return errs.InvalidMove(err)
	}
	adjustPlayerTime(game, players, userID)
	s.startGameTimer(game, players)
	return s.SaveGameAndPlayers(game, players)
}

// handleGameEnd applies a finished tournament game's result to the
// tournament: scores, scheduling the next games, and announcing new state.
func (s *Store) handleGameEnd(g *Game, gamePlayers []models.GamePlayer) error {
	if g.TournamentID == nil || g.Instance == nil {
		return nil
	}
	id := *g.TournamentID
	tournament, err := s.FindTournament(id)
	if err != nil {
		return err
	}
	players, err := s.FindTournamentPlayers(id)
	if err != nil {
		return err
	}

	inGame := func(userID int64) bool {
		for _, p := range gamePlayers {
			if p.UserID == userID {
				return true
			}
		}
		return false
	}
	switch end := g.Instance.EndState(); end.State {
	case games.Tie:
		for i := range players {
			players[i].Tie++
		}
	case games.Win:
		for i := range players {
			if players[i].UserID == end.Winner {
				players[i].Win++
			} else if inGame(players[i].UserID) {
				players[i].Loss++
			}
		}
	}
	if err := s.saveTournamentPlayers(players); err != nil {
		return err
	}

	if err := tournament.Instance.Advance(tournament.ID, tournament.OwnerID, &tournament.Cfg, players, s); err != nil {
		return err
	}

	// reload so observers see post-advance state
	tournament, err = s.FindTournament(id)
	if err != nil {
		return err
	}
	players, err = s.FindTournamentPlayers(id)
	if err != nil {
		return err
	}
	s.onTournamentChanged(tournament, players, s)
	return nil
}

// HandleExpiry resolves a possible time expiry. The expiry only counts if the
// game is still on the turn the timer was started for.
func (s *Store) HandleExpiry(e TimeExpiry) error {
	game, players, err := s.FindGame(e.GameID)
	if err != nil {
		return err
	}
	if game.TurnID == nil || *game.TurnID != e.TurnID {
		return nil
	}
	if len(players) != 2 {
		log.Printf("[store] time expired in game %d with %d players, ignoring", e.GameID, len(players))
		return nil
	}
	var winner *int64
	for _, p := range players {
		if p.UserID != e.UserID {
			userID := p.UserID
			winner = &userID
			break
		}
	}
	return s.EndGame(game, players, winner, "Time Expired")
}
