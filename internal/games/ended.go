package games

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EndedGamePrefix marks a serialized state as a forced termination record.
// The store checks for it on load and routes deserialization here instead of
// to the original game type.
const EndedGamePrefix = "__ENDED_GAME"

// Ended is the game type for games terminated outside normal play (time
// expiry, forced end). It wraps the last live state as an opaque string.
type Ended struct{}

func (Ended) New(players []int64) Instance {
	return &EndedInstance{}
}

func (Ended) Deserialize(data string, players []int64) Instance {
	// prefix, winner, reason, game type, previous state. The previous
	// state may itself contain commas, so split into at most 5 pieces.
	parts := strings.SplitN(data, ",", 5)
	if len(parts) != 5 || strings.TrimSpace(parts[0]) != EndedGamePrefix {
		return nil
	}
	inst := &EndedInstance{
		Reason:    strings.TrimSpace(parts[2]),
		GameType:  strings.TrimSpace(parts[3]),
		PrevState: strings.TrimPrefix(parts[4], " "),
	}
	winner := strings.TrimSpace(parts[1])
	if winner != "-" {
		id, err := strconv.ParseInt(winner, 10, 64)
		if err != nil {
			return nil
		}
		inst.Winner = &id
	}
	return inst
}

// EndedInstance is the terminal state of a forcibly ended game.
type EndedInstance struct {
	Winner    *int64
	Reason    string
	GameType  string
	PrevState string
}

// NewEndedInstance wraps the current state of a game (nil if it never
// started) into a terminal record.
func NewEndedInstance(prev Instance, gameType string, winner *int64, reason string) *EndedInstance {
	prevState := "-"
	if prev != nil {
		prevState = prev.Serialize()
	}
	return &EndedInstance{
		Winner:    winner,
		Reason:    reason,
		GameType:  gameType,
		PrevState: prevState,
	}
}

func (e *EndedInstance) Serialize() string {
	winner := "-"
	if e.Winner != nil {
		winner = strconv.FormatInt(*e.Winner, 10)
	}
	return fmt.Sprintf("%s, %s, %s, %s, %s", EndedGamePrefix, winner, e.Reason, e.GameType, e.PrevState)
}

func (e *EndedInstance) SerializeCurrent() string {
	return e.Serialize()
}

func (e *EndedInstance) Turn() Turn {
	return Turn{Finished: true}
}

func (e *EndedInstance) MakeMove(user int64, move string) error {
	return errors.New("invalid move")
}

func (e *EndedInstance) EndState() Result {
	if e.Winner == nil {
		return Result{State: Tie}
	}
	return Result{State: Win, Winner: *e.Winner}
}

func (e *EndedInstance) Scores() map[int64]float64 {
	return nil
}
