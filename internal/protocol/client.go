package protocol

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/playgambit/backend/internal/apikey"
	"github.com/playgambit/backend/internal/errs"
)

// ClientCommand is one parsed command from a client. The concrete type
// identifies the command.
type ClientCommand interface {
	clientCommand()
}

type VersionCmd struct{ Version Version }

type NewUserCmd struct {
	Name     string
	Email    string
	Password string
}

type NewTmpUserCmd struct{ Name string }

type APIKeyCmd struct{ Key apikey.Key }

type LoginCmd struct {
	Email    string
	Password string
}

type LogoutCmd struct{}

type NameCmd struct{ Name string }

type PasswordCmd struct{ Password string }

type GenAPIKeyCmd struct{}

type SelfUserInfoCmd struct{}

type NewGameCmd struct {
	GameType    string
	TotalTime   int64
	TimePerMove int64
}

type NewGameTmpUsersCmd struct {
	GameType    string
	TotalTime   int64
	TimePerMove int64
	NumTmpUsers int
}

type ObserveGameCmd struct{ ID int64 }

type StopObserveGameCmd struct{ ID int64 }

type JoinGameCmd struct{ ID int64 }

type LeaveGameCmd struct{ ID int64 }

type StartGameCmd struct{ ID int64 }

type NewTournamentCmd struct {
	TourneyType string
	GameType    string
	TotalTime   int64
	TimePerMove int64
	Options     string
}

type JoinTournamentCmd struct{ ID int64 }

type LeaveTournamentCmd struct{ ID int64 }

type StartTournamentCmd struct{ ID int64 }

type ObserveTournamentCmd struct{ ID int64 }

type StopObserveTournamentCmd struct{ ID int64 }

type PlayCmd struct {
	ID   int64
	Play string
}

type MoveCmd struct{ Move string }

func (VersionCmd) clientCommand()               {}
func (NewUserCmd) clientCommand()               {}
func (NewTmpUserCmd) clientCommand()            {}
func (APIKeyCmd) clientCommand()                {}
func (LoginCmd) clientCommand()                 {}
func (LogoutCmd) clientCommand()                {}
func (NameCmd) clientCommand()                  {}
func (PasswordCmd) clientCommand()              {}
func (GenAPIKeyCmd) clientCommand()             {}
func (SelfUserInfoCmd) clientCommand()          {}
func (NewGameCmd) clientCommand()               {}
func (NewGameTmpUsersCmd) clientCommand()       {}
func (ObserveGameCmd) clientCommand()           {}
func (StopObserveGameCmd) clientCommand()       {}
func (JoinGameCmd) clientCommand()              {}
func (LeaveGameCmd) clientCommand()             {}
func (StartGameCmd) clientCommand()             {}
func (NewTournamentCmd) clientCommand()         {}
func (JoinTournamentCmd) clientCommand()        {}
func (LeaveTournamentCmd) clientCommand()       {}
func (StartTournamentCmd) clientCommand()       {}
func (ObserveTournamentCmd) clientCommand()     {}
func (StopObserveTournamentCmd) clientCommand() {}
func (PlayCmd) clientCommand()                  {}
func (MoveCmd) clientCommand()                  {}

// argCounts is the exact number of comma-separated arguments each command
// takes. Unknown verbs are rejected before any argument parsing.
var argCounts = map[string]int{
	"new_user":                3,
	"new_tmp_user":            1,
	"apikey":                  1,
	"login":                   2,
	"name":                    1,
	"password":                1,
	"gen_apikey":              0,
	"self_user_info":          0,
	"logout":                  0,
	"new_game":                3,
	"new_game_tmp_users":      4,
	"observe_game":            1,
	"stop_observe_game":       1,
	"join_game":               1,
	"leave_game":              1,
	"start_game":              1,
	"new_tournament":          5,
	"join_tournament":         1,
	"leave_tournament":        1,
	"start_tournament":        1,
	"observe_tournament":      1,
	"stop_observe_tournament": 1,
	"version":                 1,
	"play":                    2,
	"move":                    1,
}

// splitCommand separates the verb (up to the first whitespace) from the
// comma-separated argument list. Arguments are trimmed but may be empty.
func splitCommand(msg string) (string, []string) {
	verbEnd := len(msg)
	for i, c := range msg {
		if unicode.IsSpace(c) {
			verbEnd = i
			break
		}
	}
	verb := msg[:verbEnd]
	if verbEnd == len(msg) {
		return verb, nil
	}
	args := strings.Split(msg[verbEnd:], ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return verb, args
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.ErrInvalidNumberID
	}
	return id, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.ErrInvalidNumberID
	}
	return n, nil
}

// ParseClient parses one line from a client into a command.
func ParseClient(message string) (ClientCommand, error) {
	verb, args := splitCommand(strings.TrimSpace(message))
	expected, ok := argCounts[verb]
	if !ok {
		return nil, errs.InvalidCommand(verb)
	}
	if len(args) != expected {
		return nil, errs.InvalidNumberOfArguments(verb, expected, len(args))
	}

	switch verb {
	case "version":
		v, err := ParseVersion(args[0])
		if err != nil {
			return nil, err
		}
		return VersionCmd{Version: v}, nil
	case "new_user":
		return NewUserCmd{Name: args[0], Email: args[1], Password: args[2]}, nil
	case "new_tmp_user":
		return NewTmpUserCmd{Name: args[0]}, nil
	case "apikey":
		key, err := apikey.Parse(args[0])
		if err != nil {
			return nil, err
		}
		return APIKeyCmd{Key: key}, nil
	case "login":
		return LoginCmd{Email: args[0], Password: args[1]}, nil
	case "logout":
		return LogoutCmd{}, nil
	case "name":
		return NameCmd{Name: args[0]}, nil
	case "password":
		return PasswordCmd{Password: args[0]}, nil
	case "gen_apikey":
		return GenAPIKeyCmd{}, nil
	case "self_user_info":
		return SelfUserInfoCmd{}, nil
	case "new_game":
		total, err := parseID(args[1])
		if err != nil {
			return nil, err
		}
		perMove, err := parseID(args[2])
		if err != nil {
			return nil, err
		}
		return NewGameCmd{GameType: args[0], TotalTime: total, TimePerMove: perMove}, nil
	case "new_game_tmp_users":
		total, err := parseID(args[1])
		if err != nil {
			return nil, err
		}
		perMove, err := parseID(args[2])
		if err != nil {
			return nil, err
		}
		n, err := parseInt(args[3])
		if err != nil {
			return nil, err
		}
		return NewGameTmpUsersCmd{GameType: args[0], TotalTime: total, TimePerMove: perMove, NumTmpUsers: n}, nil
	case "observe_game":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return ObserveGameCmd{ID: id}, nil
	case "stop_observe_game":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return StopObserveGameCmd{ID: id}, nil
	case "join_game":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return JoinGameCmd{ID: id}, nil
	case "leave_game":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return LeaveGameCmd{ID: id}, nil
	case "start_game":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return StartGameCmd{ID: id}, nil
	case "play":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return PlayCmd{ID: id, Play: args[1]}, nil
	case "move":
		return MoveCmd{Move: args[0]}, nil
	case "new_tournament":
		total, err := parseID(args[2])
		if err != nil {
			return nil, err
		}
		perMove, err := parseID(args[3])
		if err != nil {
			return nil, err
		}
		return NewTournamentCmd{
			TourneyType: args[0],
			GameType:    args[1],
			TotalTime:   total,
			TimePerMove: perMove,
			Options:     args[4],
		}, nil
	case "join_tournament":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return JoinTournamentCmd{ID: id}, nil
	case "leave_tournament":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return LeaveTournamentCmd{ID: id}, nil
	case "start_tournament":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return StartTournamentCmd{ID: id}, nil
	case "observe_tournament":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return ObserveTournamentCmd{ID: id}, nil
	case "stop_observe_tournament":
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return StopObserveTournamentCmd{ID: id}, nil
	default:
		return nil, errs.InvalidCommand(verb)
	}
}
