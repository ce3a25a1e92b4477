package board

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallenges(t *testing.T) {
	cs := Challenges()
	require.Len(t, cs, NumCells)

	var free int
	seen := make(map[ChallengeID]bool)
	for i, c := range cs {
		if c.IsFree {
			free++
			assert.Equal(t, 7, i, "free cell must sit at the center")
			assert.Equal(t, NoChallenge, c.Field)
			continue
		}
		assert.True(t, c.Field.IsValid())
		assert.False(t, seen[c.Field], "duplicate %s", c.Field)
		seen[c.Field] = true
	}
	assert.Equal(t, 1, free)
	assert.Len(t, seen, NumSquares)

	// callers cannot mutate the card
	cs[0].Label = "lol"
	assert.NotEqual(t, "lol", Challenges()[0].Label)
}

func TestParseChallengeID(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		want    ChallengeID
		wantErr bool
	}{
		{name: "first", field: "square_1", want: Square1},
		{name: "last", field: "square_14", want: Square14},
		{name: "spaces", field: " square_7 ", want: Square7},
		{name: "zero", field: "square_0", wantErr: true},
		{name: "out of range", field: "square_15", wantErr: true},
		{name: "not a number", field: "square_x", wantErr: true},
		{name: "wrong prefix", field: "tile_1", wantErr: true},
		{name: "empty", field: "", wantErr: true},
		{name: "leading zero", field: "square_01", wantErr: true},
		{name: "signed", field: "square_+1", wantErr: true},
		{name: "negative", field: "square_-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChallengeID(tt.field)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.TrimSpace(tt.field), got.String())
		})
	}
}

func TestChallengeID_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A ChallengeID `json:"a"`
		B ChallengeID `json:"b"`
	}{A: Square3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "square_3", "b": null}`, string(data))

	var v struct {
		A ChallengeID `json:"a"`
		B ChallengeID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "square_12", "b": null}`), &v))
	assert.Equal(t, Square12, v.A)
	assert.Equal(t, NoChallenge, v.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a": "square_99"}`), &v))
}

func TestChallengeID_Scan(t *testing.T) {
	var id ChallengeID
	require.NoError(t, id.Scan("square_5"))
	assert.Equal(t, Square5, id)
	require.NoError(t, id.Scan([]byte("square_6")))
	assert.Equal(t, Square6, id)
	require.NoError(t, id.Scan(nil))
	assert.Equal(t, NoChallenge, id)
	assert.Error(t, id.Scan(42))

	v, err := Square9.Value()
	require.NoError(t, err)
	assert.Equal(t, "square_9", v)
}

func TestBuildBoard(t *testing.T) {
	full := &Progress{}
	for i := range full.Squares {
		full.Squares[i] = true
	}
	some := &Progress{}
	some.Squares.Set(Square1, true)
	some.Squares.Set(Square14, true)

	tests := []struct {
		name        string
		progress    *Progress
		wantChecked int
	}{
		{name: "nil progress", progress: nil, wantChecked: 1},
		{name: "empty progress", progress: &Progress{}, wantChecked: 1},
		{name: "some squares", progress: some, wantChecked: 3},
		{name: "all squares", progress: full, wantChecked: NumCells},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := BuildBoard(tt.progress)
			require.Len(t, cells, NumCells)
			assert.True(t, cells[7].IsFree)
			assert.True(t, cells[7].Checked, "free cell is always checked")

			var checked int
			for _, c := range cells {
				if c.Checked {
					checked++
				}
			}
			assert.Equal(t, tt.wantChecked, checked)
		})
	}

	// pure: same input, same output
	assert.Equal(t, BuildBoard(some), BuildBoard(some))
	assert.True(t, BuildBoard(some)[0].Checked)
	assert.True(t, BuildBoard(some)[NumCells-1].Checked)
}

func TestLayoutForWidth(t *testing.T) {
	seq := func(n int) []int {
		s := make([]int, n)
		for i := range s {
			s[i] = i
		}
		return s
	}

	tests := []struct {
		name    string
		cells   []int
		columns int
		want    []int
	}{
		{name: "3 columns", cells: seq(15), columns: 3, want: []int{0, 3, 6, 9, 12, 1, 4, 7, 10, 13, 2, 5, 8, 11, 14}},
		{name: "5 columns", cells: seq(15), columns: 5, want: []int{0, 5, 10, 1, 6, 11, 2, 7, 12, 3, 8, 13, 4, 9, 14}},
		{name: "short last row", cells: seq(5), columns: 3, want: []int{0, 3, 1, 4, 2}},
		{name: "1 column", cells: seq(4), columns: 1, want: seq(4)},
		{name: "zero columns", cells: seq(4), columns: 0, want: seq(4)},
		{name: "negative columns", cells: seq(4), columns: -2, want: seq(4)},
		{name: "empty", cells: []int{}, columns: 3, want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LayoutForWidth(tt.cells, tt.columns))
		})
	}

	t.Run("returns a copy", func(t *testing.T) {
		in := seq(3)
		out := LayoutForWidth(in, 0)
		out[0] = 99
		assert.Equal(t, 0, in[0])
	})

	t.Run("round trip 3 then 5", func(t *testing.T) {
		cells := BuildBoard(nil)
		assert.Equal(t, cells, LayoutForWidth(LayoutForWidth(cells, 3), 5))
	})
}

func TestNewBoard(t *testing.T) {
	p := &Progress{}
	p.Squares.Set(Square2, true)

	natural := NewBoard(p, Columns)
	assert.Equal(t, Columns, natural.Columns)
	assert.Equal(t, 1, natural.Completed)
	assert.Equal(t, BuildBoard(p), natural.Cells)

	def := NewBoard(p, 0)
	assert.Equal(t, natural, def)

	narrow := NewBoard(p, 5)
	assert.Equal(t, 5, narrow.Columns)
	assert.Equal(t, 1, narrow.Completed)
	assert.Equal(t, LayoutForWidth(BuildBoard(p), Columns), narrow.Cells)

	// any other width gets the narrow reading, reported with its real width
	for _, columns := range []int{4, 7, 15} {
		b := NewBoard(p, columns)
		assert.Equal(t, NarrowColumns, b.Columns, columns)
		assert.Equal(t, narrow, b, columns)
	}
}

func TestProgress_MarshalJSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := Progress{ParticipantID: "p1", UpdatedAt: at}
	p.Squares.Set(Square4, true)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, NumSquares+2)
	assert.Equal(t, "p1", got["participant_id"])
	assert.Equal(t, "2024-05-01T12:00:00Z", got["updated_at"])
	assert.Equal(t, true, got["square_4"])
	assert.Equal(t, false, got["square_1"])
	assert.Equal(t, false, got["square_14"])
}

func TestSquares(t *testing.T) {
	var s Squares
	s.Set(Square3, true)
	s.Set(NoChallenge, true) // ignored
	assert.True(t, s.Checked(Square3))
	assert.False(t, s.Checked(NoChallenge))
	assert.Equal(t, 1, s.Count())
}

func TestWithLastChecked(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &Progress{}
	p.Squares.Set(Square1, true)

	cells := WithLastChecked(BuildBoard(p), map[ChallengeID]time.Time{
		Square1: at,
		Square2: at, // unchecked now, not annotated
	})
	require.NotNil(t, cells[0].LastCheckedAt)
	assert.Equal(t, at, *cells[0].LastCheckedAt)
	assert.Nil(t, cells[1].LastCheckedAt)
	assert.Nil(t, cells[7].LastCheckedAt)
}
