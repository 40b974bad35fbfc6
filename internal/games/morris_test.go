package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorrisPlayThrough(t *testing.T) {
	inst := ThreeMensMorris{}.New([]int64{1, 2})
	require.NotNil(t, inst)

	assert.Equal(t, Result{State: InProgress}, inst.EndState())
	assert.Equal(t, Turn{User: 1}, inst.Turn())
	assert.Equal(t, ".........,0", inst.Serialize())

	assert.EqualError(t, inst.MakeMove(1, "0"), "expected another argument")
	assert.NoError(t, inst.MakeMove(1, "0 0"))
	assert.Equal(t, "0........,1", inst.Serialize())

	assert.EqualError(t, inst.MakeMove(2, "0 0"), "target cell 0 0 is not empty")
	assert.NoError(t, inst.MakeMove(2, "0 1"))
	assert.Equal(t, "0..1.....,0", inst.Serialize())

	assert.NoError(t, inst.MakeMove(1, "1 0"))
	assert.NoError(t, inst.MakeMove(2, "1 1"))
	assert.NoError(t, inst.MakeMove(1, "2 2"))
	assert.NoError(t, inst.MakeMove(2, "0 2"))
	assert.Equal(t, "00.11.1.0,0", inst.Serialize())

	// all three pieces placed: moves now need a source and a target
	assert.EqualError(t, inst.MakeMove(1, "0 2"), "expected another argument")
	assert.EqualError(t, inst.MakeMove(1, "0 1 2 2"), "source cell 0 1 does not contain one of your pieces")
	assert.EqualError(t, inst.MakeMove(1, "2 2 0 0"), "target cell 0 0 is not empty")

	assert.NoError(t, inst.MakeMove(1, "2 2 2 0"))
	assert.Equal(t, "00011.1..,1", inst.Serialize())

	assert.True(t, inst.Turn().Finished)
	assert.Equal(t, Result{State: Win, Winner: 1}, inst.EndState())
	assert.Nil(t, inst.Scores())
}

func TestMorrisSerializeRoundTrip(t *testing.T) {
	inst := ThreeMensMorris{}.New([]int64{7, 8})
	require.NoError(t, inst.MakeMove(7, "1 1"))
	require.NoError(t, inst.MakeMove(8, "0 0"))

	reloaded := ThreeMensMorris{}.Deserialize(inst.Serialize(), []int64{7, 8})
	require.NotNil(t, reloaded)
	assert.Equal(t, inst.Serialize(), reloaded.Serialize())
	assert.Equal(t, inst.Turn(), reloaded.Turn())
}

func TestMorrisDeserializeRejectsBadData(t *testing.T) {
	assert.Nil(t, ThreeMensMorris{}.Deserialize("bad", []int64{1, 2}))
	assert.Nil(t, ThreeMensMorris{}.Deserialize("..........,0", []int64{1, 2}))
	assert.Nil(t, ThreeMensMorris{}.Deserialize(".........,5", []int64{1, 2}))
	assert.Nil(t, ThreeMensMorris{}.Deserialize(".........,0", []int64{1}))
}
