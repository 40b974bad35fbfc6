package games

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// startingFEN is the standard chess starting position.
const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Chess is a two-player chess game. Moves are UCI coordinate notation
// (e2e4, e7e8q). The first player is white, the second black.
type Chess struct{}

func (Chess) New(players []int64) Instance {
	if len(players) != 2 {
		return nil
	}
	inst, err := newChessInstance(startingFEN, nil, players[0], players[1])
	if err != nil {
		return nil
	}
	return inst
}

func (Chess) Deserialize(data string, players []int64) Instance {
	if len(players) != 2 {
		return nil
	}
	// serialization format: fen,[move0,move1,...]
	clean := strings.NewReplacer("[", "", "]", "").Replace(data)
	parts := strings.Split(clean, ",")
	fen := parts[0]
	var moves []string
	for _, m := range parts[1:] {
		if m != "" {
			moves = append(moves, m)
		}
	}
	inst, err := newChessInstance(fen, moves, players[0], players[1])
	if err != nil {
		return nil
	}
	return inst
}

type chessInstance struct {
	game *chess.Game
	// moves made to reach the current position, kept for serialization
	moves []string
	white int64
	black int64
}

func newChessInstance(fen string, moves []string, white, black int64) (*chessInstance, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &chessInstance{
		game:  chess.NewGame(opt),
		moves: moves,
		white: white,
		black: black,
	}, nil
}

func (c *chessInstance) userFor(color chess.Color) int64 {
	if color == chess.White {
		return c.white
	}
	return c.black
}

func (c *chessInstance) Serialize() string {
	return fmt.Sprintf("%s,[%s]", c.game.Position().String(), strings.Join(c.moves, ","))
}

func (c *chessInstance) SerializeCurrent() string {
	return c.game.Position().String()
}

func (c *chessInstance) Turn() Turn {
	status := c.game.Position().Status()
	if status == chess.Checkmate || status == chess.Stalemate {
		return Turn{Finished: true}
	}
	return Turn{User: c.userFor(c.game.Position().Turn())}
}

func (c *chessInstance) MakeMove(user int64, move string) error {
	if c.userFor(c.game.Position().Turn()) != user {
		return fmt.Errorf("not player's turn")
	}
	mv, err := chess.UCINotation{}.Decode(c.game.Position(), move)
	if err != nil {
		return fmt.Errorf("malformed move: %s", move)
	}
	if err := c.game.Move(mv); err != nil {
		return fmt.Errorf("illegal move: %s", move)
	}
	c.moves = append(c.moves, move)
	return nil
}

func (c *chessInstance) EndState() Result {
	switch c.game.Position().Status() {
	case chess.Stalemate:
		return Result{State: Tie}
	case chess.Checkmate:
		// the side to move is mated
		return Result{State: Win, Winner: c.userFor(c.game.Position().Turn().Other())}
	default:
		return Result{State: InProgress}
	}
}

func (c *chessInstance) Scores() map[int64]float64 {
	switch end := c.EndState(); end.State {
	case Tie:
		return map[int64]float64{c.white: 0.5, c.black: 0.5}
	case Win:
		scores := map[int64]float64{c.white: 0, c.black: 0}
		scores[end.Winner] = 1
		return scores
	default:
		return nil
	}
}
