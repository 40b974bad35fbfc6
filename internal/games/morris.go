package games

import (
	"fmt"
	"strconv"
	"strings"
)

// ThreeMensMorris is the place-then-move 3x3 game. Each player places three
// pieces, then slides them; three in a row wins. Moves are "x y" to place and
// "x0 y0 x1 y1" to slide.
type ThreeMensMorris struct{}

const morrisEmpty int8 = -1

func (ThreeMensMorris) New(players []int64) Instance {
	if len(players) != 2 {
		return nil
	}
	inst := &morrisInstance{players: [2]int64{players[0], players[1]}}
	for y := range inst.board {
		for x := range inst.board[y] {
			inst.board[y][x] = morrisEmpty
		}
	}
	return inst
}

func (t ThreeMensMorris) Deserialize(data string, players []int64) Instance {
	if len(players) != 2 {
		return nil
	}
	// serialization format: nine cells row-major (".", "0", "1"), then turn
	parts := strings.Split(data, ",")
	if len(parts) != 2 || len(parts[0]) != 9 {
		return nil
	}
	turn, err := strconv.Atoi(parts[1])
	if err != nil || turn < 0 || turn > 1 {
		return nil
	}
	inst := t.New(players).(*morrisInstance)
	inst.turn = int8(turn)
	for i, c := range parts[0] {
		y, x := i/3, i%3
		switch c {
		case '0':
			inst.board[y][x] = 0
		case '1':
			inst.board[y][x] = 1
		case '.':
		default:
			return nil
		}
	}
	return inst
}

type morrisInstance struct {
	players [2]int64
	// board cells hold a player index or morrisEmpty
	board [3][3]int8
	turn  int8
}

func (m *morrisInstance) winner() (int8, bool) {
	for _, p := range []int8{0, 1} {
		if m.hasRow(p) {
			return p, true
		}
	}
	return 0, false
}

func (m *morrisInstance) hasRow(p int8) bool {
	for i := 0; i < 3; i++ {
		if m.board[i][0] == p && m.board[i][1] == p && m.board[i][2] == p {
			return true
		}
		if m.board[0][i] == p && m.board[1][i] == p && m.board[2][i] == p {
			return true
		}
	}
	if m.board[0][0] == p && m.board[1][1] == p && m.board[2][2] == p {
		return true
	}
	return m.board[0][2] == p && m.board[1][1] == p && m.board[2][0] == p
}

func (m *morrisInstance) count(p int8) int {
	n := 0
	for _, row := range m.board {
		for _, cell := range row {
			if cell == p {
				n++
			}
		}
	}
	return n
}

func parseMorrisCoord(fields []string, i int) (int, int, error) {
	if len(fields) < i+2 {
		return 0, 0, fmt.Errorf("expected another argument")
	}
	x, err := strconv.Atoi(fields[i])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number: %s", fields[i])
	}
	y, err := strconv.Atoi(fields[i+1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number: %s", fields[i+1])
	}
	if x < 0 || x >= 3 || y < 0 || y >= 3 {
		return 0, 0, fmt.Errorf("cell %d %d is outside the board", x, y)
	}
	return x, y, nil
}

func (m *morrisInstance) MakeMove(user int64, move string) error {
	var p int8
	if user != m.players[0] {
		p = 1
	}

	fields := strings.Fields(strings.TrimSpace(move))
	x0, y0, err := parseMorrisCoord(fields, 0)
	if err != nil {
		return err
	}

	if m.count(p) != 3 {
		// placement phase
		if m.board[y0][x0] != morrisEmpty {
			return fmt.Errorf("target cell %d %d is not empty", x0, y0)
		}
		m.board[y0][x0] = p
	} else {
		x1, y1, err := parseMorrisCoord(fields, 2)
		if err != nil {
			return err
		}
		if m.board[y0][x0] != p {
			return fmt.Errorf("source cell %d %d does not contain one of your pieces", x0, y0)
		}
		if m.board[y1][x1] != morrisEmpty {
			return fmt.Errorf("target cell %d %d is not empty", x1, y1)
		}
		m.board[y0][x0] = morrisEmpty
		m.board[y1][x1] = p
	}

	m.turn = 1 - m.turn
	return nil
}

func (m *morrisInstance) Serialize() string {
	var b strings.Builder
	for _, row := range m.board {
		for _, cell := range row {
			if cell == morrisEmpty {
				b.WriteByte('.')
			} else {
				fmt.Fprintf(&b, "%d", cell)
			}
		}
	}
	fmt.Fprintf(&b, ",%d", m.turn)
	return b.String()
}

func (m *morrisInstance) SerializeCurrent() string {
	return m.Serialize()
}

func (m *morrisInstance) Turn() Turn {
	if _, won := m.winner(); won {
		return Turn{Finished: true}
	}
	return Turn{User: m.players[m.turn]}
}

func (m *morrisInstance) EndState() Result {
	if p, won := m.winner(); won {
		return Result{State: Win, Winner: m.players[p]}
	}
	return Result{State: InProgress}
}

func (m *morrisInstance) Scores() map[int64]float64 {
	return nil
}
