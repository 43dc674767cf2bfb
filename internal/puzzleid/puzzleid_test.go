package puzzleid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsOutOfRangeValues(t *testing.T) {
	_, err := New(2014, 1)
	assert.Error(t, err)

	_, err = New(2015, 0)
	assert.Error(t, err)

	_, err = New(2015, 26)
	assert.Error(t, err)

	id, err := New(2015, 25)
	require.NoError(t, err)
	assert.Equal(t, ID{Year: 2015, Day: 25}, id)
}

func TestLessOrdersByYearThenDay(t *testing.T) {
	a := ID{Year: 2015, Day: 5}
	b := ID{Year: 2015, Day: 6}
	c := ID{Year: 2016, Day: 1}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}

func TestAllCoversEveryDayInRange(t *testing.T) {
	ids := All(2015, 2016)
	require.Len(t, ids, 50)
	assert.Equal(t, ID{Year: 2015, Day: 1}, ids[0])
	assert.Equal(t, ID{Year: 2015, Day: 25}, ids[24])
	assert.Equal(t, ID{Year: 2016, Day: 1}, ids[25])
	assert.Equal(t, ID{Year: 2016, Day: 25}, ids[49])
}

func TestString(t *testing.T) {
	id := ID{Year: 2015, Day: 1}
	assert.Equal(t, "2015 day 1", id.String())
}
