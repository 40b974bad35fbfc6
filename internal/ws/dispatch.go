package ws

import (
	"fmt"

	"github.com/playgambit/backend/internal/apikey"
	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/models"
	"github.com/playgambit/backend/internal/protocol"
	"github.com/playgambit/backend/internal/session"
)

// currentUser loads the user this connection is logged in as.
func (s *Server) currentUser(addr string) (models.User, error) {
	userID, ok := s.registry.UserID(addr)
	if !ok {
		return models.User{}, errs.ErrNotLoggedIn
	}
	return s.store.FindUser(userID)
}

// login registers the connection as the user and pushes any games already
// waiting on them to move.
func (s *Server) login(addr string, userID int64) error {
	s.registry.Login(addr, userID)
	msgs, err := s.waitingGameMsgs(userID, s.registry.Protocol(addr))
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := s.registry.Send(addr, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) requireProtocol(addr string, expected protocol.Version) error {
	actual := s.registry.Protocol(addr)
	if actual != expected {
		return errs.WrongProtocol(int(expected), int(actual))
	}
	return nil
}

func strOf(msg fmt.Stringer) *string {
	str := msg.String()
	return &str
}

func strPtr(msg string) *string {
	return &msg
}

// dispatch applies one parsed command for a connection. A nil reply with nil
// error means the command succeeded with nothing to say.
func (s *Server) dispatch(addr string, cmd protocol.ClientCommand) (*string, error) {
	switch c := cmd.(type) {
	case protocol.VersionCmd:
		s.registry.SetProtocol(addr, c.Version)
		return nil, nil

	case protocol.NewUserCmd:
		user, err := s.store.NewUser(c.Name, c.Email, c.Password)
		if err != nil {
			return nil, err
		}
		return nil, s.login(addr, user.ID)

	case protocol.NewTmpUserCmd:
		user, err := s.store.NewTmpUser(c.Name)
		if err != nil {
			return nil, err
		}
		return nil, s.login(addr, user.ID)

	case protocol.APIKeyCmd:
		user, err := s.store.FindUserByAPIKey(c.Key)
		if err != nil {
			return nil, err
		}
		return nil, s.login(addr, user.ID)

	case protocol.LoginCmd:
		user, err := s.store.FindUserByCredentials(c.Email, c.Password)
		if err != nil {
			return nil, err
		}
		return nil, s.login(addr, user.ID)

	case protocol.LogoutCmd:
		s.registry.Logout(addr)
		return nil, nil

	case protocol.NameCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		user.Name = c.Name
		return nil, s.store.SaveUser(&user)

	case protocol.PasswordCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.SetPassword(&user, c.Password)

	case protocol.GenAPIKeyCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		key, err := s.store.GenerateAPIKey(&user)
		if err != nil {
			return nil, err
		}
		return strPtr(protocol.GenAPIKeyMsg(key)), nil

	case protocol.SelfUserInfoCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		var email *string
		if user.Email.Valid {
			email = &user.Email.String
		}
		return strPtr(protocol.SelfUserInfoMsg(user.ID, user.Name, email)), nil

	case protocol.NewGameCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		game, err := s.store.NewGame(c.GameType, user.ID, timeCfg(c.TimePerMove, c.TotalTime), nil)
		if err != nil {
			return nil, err
		}
		return strPtr(protocol.NewGameMsg(game.ID)), nil

	case protocol.NewGameTmpUsersCmd:
		return s.newGameTmpUsers(c)

	case protocol.ObserveGameCmd:
		if _, err := s.currentUser(addr); err != nil {
			return nil, err
		}
		game, players, err := s.store.FindGame(c.ID)
		if err != nil {
			return nil, err
		}
		s.registry.Subscribe(session.GameTopic(c.ID), addr)
		return strOf(gameStateMsg(game, players)), nil

	case protocol.StopObserveGameCmd:
		if _, err := s.currentUser(addr); err != nil {
			return nil, err
		}
		s.registry.Unsubscribe(session.GameTopic(c.ID), addr)
		return nil, nil

	case protocol.JoinGameCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.JoinGame(c.ID, user.ID)

	case protocol.LeaveGameCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.LeaveGame(c.ID, user.ID)

	case protocol.StartGameCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.StartGame(c.ID, user.ID)

	case protocol.PlayCmd:
		if err := s.requireProtocol(addr, protocol.Current); err != nil {
			return nil, err
		}
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.MakeMove(c.ID, user.ID, c.Play)

	case protocol.MoveCmd:
		if err := s.requireProtocol(addr, protocol.Legacy); err != nil {
			return nil, err
		}
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		gameID, ok, err := s.store.FindOldestWaitingGame(user.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.ErrNotTurn
		}
		return nil, s.store.MakeMove(gameID, user.ID, c.Move)

	case protocol.NewTournamentCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		cfg := tournamentCfg(c.GameType, c.TimePerMove, c.TotalTime)
		tournament, err := s.store.NewTournament(c.TourneyType, user.ID, &cfg, c.Options)
		if err != nil {
			return nil, err
		}
		return strPtr(protocol.NewTournamentMsg(tournament.ID)), nil

	case protocol.JoinTournamentCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.JoinTournament(c.ID, user.ID)

	case protocol.LeaveTournamentCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.LeaveTournament(c.ID, user.ID)

	case protocol.StartTournamentCmd:
		user, err := s.currentUser(addr)
		if err != nil {
			return nil, err
		}
		return nil, s.store.StartTournament(c.ID, user.ID)

	case protocol.ObserveTournamentCmd:
		if _, err := s.currentUser(addr); err != nil {
			return nil, err
		}
		return s.observeTournament(addr, c.ID)

	case protocol.StopObserveTournamentCmd:
		if _, err := s.currentUser(addr); err != nil {
			return nil, err
		}
		s.registry.Unsubscribe(session.TournamentTopic(c.ID), addr)
		return nil, nil

	default:
		return nil, errs.InvalidCommand(fmt.Sprintf("%T", cmd))
	}
}

// newGameTmpUsers creates throwaway accounts, seats them in a fresh game, and
// starts it. The reply carries each account's api key so the caller can hand
// the seats out.
func (s *Server) newGameTmpUsers(c protocol.NewGameTmpUsersCmd) (*string, error) {
	if c.NumTmpUsers <= 0 {
		return nil, errs.ErrInvalidNumberOfPlayers
	}

	keys := make([]apikey.Key, 0, c.NumTmpUsers)
	userIDs := make([]int64, 0, c.NumTmpUsers)
	for i := 0; i < c.NumTmpUsers; i++ {
		user, err := s.store.NewTmpUser(fmt.Sprintf("Temporary User #%d", i))
		if err != nil {
			return nil, err
		}
		key, err := s.store.GenerateAPIKey(&user)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		userIDs = append(userIDs, user.ID)
	}

	game, err := s.store.NewGame(c.GameType, userIDs[0], timeCfg(c.TimePerMove, c.TotalTime), nil)
	if err != nil {
		return nil, err
	}
	for _, userID := range userIDs {
		if err := s.store.JoinGame(game.ID, userID); err != nil {
			return nil, err
		}
	}
	if err := s.store.StartGame(game.ID, userIDs[0]); err != nil {
		return nil, err
	}
	return strPtr(protocol.NewGameTmpUsersMsg(game.ID, keys)), nil
}

// observeTournament subscribes the client and sends a snapshot: every game in
// the tournament, then the tournament itself as the reply.
func (s *Server) observeTournament(addr string, id int64) (*string, error) {
	tournament, err := s.store.FindTournament(id)
	if err != nil {
		return nil, err
	}
	players, err := s.store.FindTournamentPlayers(id)
	if err != nil {
		return nil, err
	}

	dbgames, err := s.store.FindTournamentGames(id)
	if err != nil {
		return nil, err
	}
	for _, dbg := range dbgames {
		game, gamePlayers, err := s.store.GameAndPlayers(dbg)
		if err != nil {
			return nil, err
		}
		if err := s.registry.Send(addr, gameStateMsg(game, gamePlayers).String()); err != nil {
			return nil, err
		}
	}

	s.registry.Subscribe(session.TournamentTopic(id), addr)

	msg, err := s.tournamentMsg(tournament, players)
	if err != nil {
		return nil, err
	}
	return strPtr(msg), nil
}
