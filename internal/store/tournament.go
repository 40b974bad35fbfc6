package store

import (
	"database/sql"
	"errors"

	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/models"
)

func (s *Store) tournamentFromDB(dbt models.DBTournament) (*Tournament, error) {
	t, ok := s.tournamentTypes[dbt.TournamentType]
	if !ok {
		return nil, errs.ErrNoSuchTournamentType
	}
	cfg := TournamentCfg{
		GameType: dbt.GameType,
		Time:     TimeCfgFromMs(dbt.DurPerMoveMs, dbt.DurSuddenDeathMs),
	}
	instance, err := t.New(dbt.Options, &cfg)
	if err != nil {
		return nil, err
	}
	return &Tournament{
		ID:             dbt.ID,
		OwnerID:        dbt.OwnerID,
		TournamentType: dbt.TournamentType,
		Cfg:            cfg,
		Instance:       instance,
		Started:        dbt.Started,
	}, nil
}

func (s *Store) tournamentToDB(t *Tournament, players []models.TournamentPlayer) (models.DBTournament, error) {
	end, err := t.Instance.EndState(t.Started, t.ID, &t.Cfg, players, s)
	if err != nil {
		return models.DBTournament{}, err
	}
	dbt := models.DBTournament{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		TournamentType:   t.TournamentType,
		GameType:         t.Cfg.GameType,
		DurPerMoveMs:     t.Cfg.Time.PerMoveMs(),
		DurSuddenDeathMs: t.Cfg.Time.SuddenDeathMs(),
		Started:          t.Started,
		Finished:         end.State != games.InProgress,
		Options:          t.Instance.Serialize(&t.Cfg),
	}
	if end.State == games.Win {
		dbt.Winner = sql.NullInt64{Int64: end.Winner, Valid: true}
	}
	return dbt, nil
}

func (s *Store) findDBTournament(id int64) (models.DBTournament, error) {
	var dbt models.DBTournament
	err := s.db.Get(&dbt, `SELECT * FROM tournaments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DBTournament{}, errs.ErrNoSuchTournament
	}
	if err != nil {
		return models.DBTournament{}, errs.Database(err)
	}
	return dbt, nil
}

// FindTournament loads a tournament and rebuilds its scheduling instance.
func (s *Store) FindTournament(id int64) (*Tournament, error) {
	dbt, err := s.findDBTournament(id)
	if err != nil {
		return nil, err
	}
	return s.tournamentFromDB(dbt)
}

func (s *Store) saveDBTournament(dbt models.DBTournament) error {
	_, err := s.db.Exec(
		`UPDATE tournaments SET owner_id = $1, tournament_type = $2, game_type = $3,
		        dur_per_move_ms = $4, dur_sudden_death_ms = $5, started = $6,
		        finished = $7, winner = $8, options = $9
		 WHERE id = $10`,
		dbt.OwnerID, dbt.TournamentType, dbt.GameType, dbt.DurPerMoveMs, dbt.DurSuddenDeathMs,
		dbt.Started, dbt.Finished, dbt.Winner, dbt.Options, dbt.ID)
	if err != nil {
		return errs.Database(err)
	}
	return nil
}

func (s *Store) saveTournamentPlayer(p models.TournamentPlayer) error {
	_, err := s.db.Exec(
		`UPDATE tournament_players SET win = $1, loss = $2, tie = $3 WHERE id = $4`,
		p.Win, p.Loss, p.Tie, p.ID)
	if err != nil {
		return errs.Database(err)
	}
	return nil
}

func (s *Store) saveTournamentPlayers(players []models.TournamentPlayer) error {
	for _, p := range players {
		if err := s.saveTournamentPlayer(p); err != nil {
			return err
		}
	}
	return nil
}

// SaveTournament writes a tournament and its player records back.
func (s *Store) SaveTournament(t *Tournament, players []models.TournamentPlayer) error {
	dbt, err := s.tournamentToDB(t, players)
	if err != nil {
		return err
	}
	if err := s.saveDBTournament(dbt); err != nil {
		return err
	}
	return s.saveTournamentPlayers(players)
}

// FindTournamentPlayers loads a tournament's players in join order, with
// names attached.
func (s *Store) FindTournamentPlayers(id int64) ([]models.TournamentPlayer, error) {
	players := []models.TournamentPlayer{}
	err := s.db.Select(&players,
		`SELECT tp.id, tp.tournament_id, tp.user_id, u.name AS name, tp.win, tp.loss, tp.tie
		 FROM tournament_players tp JOIN users u ON u.id = tp.user_id
		 WHERE tp.tournament_id = $1 ORDER BY tp.id ASC`, id)
	if err != nil {
		return nil, errs.Database(err)
	}
	return players, nil
}

func (s *Store) findTournamentPlayer(tournamentID, userID int64) (models.TournamentPlayer, error) {
	var player models.TournamentPlayer
	err := s.db.Get(&player,
		`SELECT tp.id, tp.tournament_id, tp.user_id, u.name AS name, tp.win, tp.loss, tp.tie
		 FROM tournament_players tp JOIN users u ON u.id = tp.user_id
		 WHERE tp.tournament_id = $1 AND tp.user_id = $2`, tournamentID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TournamentPlayer{}, errs.ErrNoSuchUser
	}
	if err != nil {
		return models.TournamentPlayer{}, errs.Database(err)
	}
	return player, nil
}

// NewTournament creates an unstarted tournament row. The options string is
// validated lazily, when the tournament is next loaded.
func (s *Store) NewTournament(tournamentType string, owner int64, cfg *TournamentCfg, options string) (models.DBTournament, error) {
	if _, ok := s.tournamentTypes[tournamentType]; !ok {
		return models.DBTournament{}, errs.ErrNoSuchTournamentType
	}
	if _, ok := s.gameTypes[cfg.GameType]; !ok {
		return models.DBTournament{}, errs.NoSuchGameType(cfg.GameType)
	}
	dbt := models.DBTournament{
		OwnerID:          owner,
		TournamentType:   tournamentType,
		GameType:         cfg.GameType,
		DurPerMoveMs:     cfg.Time.PerMoveMs(),
		DurSuddenDeathMs: cfg.Time.SuddenDeathMs(),
		Options:          options,
	}
	err := s.db.QueryRowx(
		`INSERT INTO tournaments (owner_id, tournament_type, game_type, dur_per_move_ms,
		                          dur_sudden_death_ms, started, finished, winner, options)
		 VALUES ($1, $2, $3, $4, $5, false, false, NULL, $6) RETURNING id`,
		dbt.OwnerID, dbt.TournamentType, dbt.GameType, dbt.DurPerMoveMs, dbt.DurSuddenDeathMs, dbt.Options,
	).Scan(&dbt.ID)
	if err != nil {
		return models.DBTournament{}, errs.Database(err)
	}
	return dbt, nil
}

// JoinTournament adds a user as a tournament player.
func (s *Store) JoinTournament(id, userID int64) error {
	_, err := s.findTournamentPlayer(id, userID)
	if err == nil {
		return errs.ErrAlreadyInGame
	}
	if !errors.Is(err, errs.ErrNoSuchUser) {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO tournament_players (tournament_id, user_id, win, loss, tie) VALUES ($1, $2, 0, 0, 0)`,
		id, userID)
	if err != nil {
		return errs.Database(err)
	}

	tournament, err := s.FindTournament(id)
	if err != nil {
		return err
	}
	players, err := s.FindTournamentPlayers(id)
	if err != nil {
		return err
	}
	s.onTournamentChanged(tournament, players, s)
	return nil
}

// LeaveTournament removes a user from an unstarted tournament.
func (s *Store) LeaveTournament(id, userID int64) error {
	dbt, err := s.findDBTournament(id)
	if err != nil {
		return err
	}
	if dbt.Started {
		return errs.ErrGameAlreadyStarted
	}

	player, err := s.findTournamentPlayer(id, userID)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM tournament_players WHERE id = $1`, player.ID); err != nil {
		return errs.Database(err)
	}

	tournament, err := s.tournamentFromDB(dbt)
	if err != nil {
		return err
	}
	players, err := s.FindTournamentPlayers(id)
	if err != nil {
		return err
	}
	s.onTournamentChanged(tournament, players, s)
	return nil
}

// StartTournament marks a tournament started and advances it, which creates
// and starts its first wave of games. Only the owner may start it.
func (s *Store) StartTournament(id, userID int64) error {
	tournament, err := s.FindTournament(id)
	if err != nil {
		return err
	}
	if tournament.OwnerID != userID {
		return errs.ErrDontOwnGame
	}
	if tournament.Started {
		return errs.ErrGameAlreadyStarted
	}

	tournament.Started = true
	players, err := s.FindTournamentPlayers(id)
	if err != nil {
		return err
	}
	if err := s.SaveTournament(tournament, players); err != nil {
		return err
	}
	s.onTournamentChanged(tournament, players, s)
	return tournament.Instance.Advance(tournament.ID, tournament.OwnerID, &tournament.Cfg, players, s)
}

// FindTournamentGames lists all game rows belonging to a tournament.
func (s *Store) FindTournamentGames(id int64) ([]models.DBGame, error) {
	dbgames := []models.DBGame{}
	err := s.db.Select(&dbgames, `SELECT * FROM games WHERE tournament_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, errs.Database(err)
	}
	return dbgames, nil
}
