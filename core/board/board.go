// Package board holds the fixed bingo card: the 15 challenges, the per-participant
// completion record and the pure functions that turn it into a renderable grid.
package board

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChallengeID identifies one of the 14 completable squares. The free center cell has none.
type ChallengeID int

const (
	NoChallenge ChallengeID = iota
	Square1
	Square2
	Square3
	Square4
	Square5
	Square6
	Square7
	Square8
	Square9
	Square10
	Square11
	Square12
	Square13
	Square14
)

const (
	// NumSquares is the number of completable squares.
	NumSquares = 14
	// NumCells is the number of cells on the card, free cell included.
	NumCells = NumSquares + 1
	// Columns is the width of the natural row-major layout.
	Columns = 3
	// NarrowColumns is the width of the column-major reading of the natural layout.
	NarrowColumns = NumCells / Columns

	fieldPrefix = "square_"
)

func (id ChallengeID) IsValid() bool {
	return id >= Square1 && id <= Square14
}

// String returns the field key used on the wire and in storage, e.g. "square_7".
func (id ChallengeID) String() string {
	if !id.IsValid() {
		return ""
	}
	return fieldPrefix + strconv.Itoa(int(id))
}

// ParseChallengeID parses a field key such as "square_3".
func ParseChallengeID(field string) (ChallengeID, error) {
	field = strings.TrimSpace(field)
	if !strings.HasPrefix(field, fieldPrefix) {
		return NoChallenge, fmt.Errorf("unknown challenge %q", field)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(field, fieldPrefix))
	// only the canonical form, no sign or leading zeros
	if err != nil || !ChallengeID(n).IsValid() || ChallengeID(n).String() != field {
		return NoChallenge, fmt.Errorf("unknown challenge %q", field)
	}
	return ChallengeID(n), nil
}

func (id ChallengeID) MarshalJSON() ([]byte, error) {
	if !id.IsValid() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

func (id *ChallengeID) UnmarshalJSON(data []byte) error {
	var field *string
	if err := json.Unmarshal(data, &field); err != nil {
		return err
	}
	if field == nil {
		*id = NoChallenge
		return nil
	}
	parsed, err := ParseChallengeID(*field)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer.
func (id ChallengeID) Value() (driver.Value, error) {
	if !id.IsValid() {
		return nil, nil
	}
	return id.String(), nil
}

// Scan implements sql.Scanner.
func (id *ChallengeID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*id = NoChallenge
		return nil
	case string:
		parsed, err := ParseChallengeID(v)
		*id = parsed
		return err
	case []byte:
		parsed, err := ParseChallengeID(string(v))
		*id = parsed
		return err
	}
	return fmt.Errorf("board: cannot scan %T into ChallengeID", src)
}

// Challenge is one cell definition of the card.
type Challenge struct {
	Field  ChallengeID `json:"field"`
	Label  string      `json:"label"`
	IsFree bool        `json:"is_free"`
}

// challenges is the card in row-major order, 3 across and 5 down. Never mutated.
var challenges = [NumCells]Challenge{
	// Row 1
	{Field: Square1, Label: "Purchase Any Size Popcorn"},
	{Field: Square2, Label: "See a Movie on a Weekday"},
	{Field: Square3, Label: "Follow Our Letterboxd"},
	// Row 2
	{Field: Square4, Label: "See a Mystery Movie"},
	{Field: Square5, Label: "Purchase Any Ice Cream"},
	{Field: Square6, Label: "Donate to St. Jude's"},
	// Row 3, center is free
	{Field: Square7, Label: "Purchase Any Movie Merch"},
	{Field: NoChallenge, Label: "FREE SPACE", IsFree: true},
	{Field: Square8, Label: "Purchase Any Size Drink"},
	// Row 4
	{Field: Square9, Label: "Leave Us a Review"},
	{Field: Square10, Label: "Purchase Any Candy"},
	{Field: Square11, Label: "See a Matinee Movie"},
	// Row 5
	{Field: Square12, Label: "Sign Up for Regal Unlimited"},
	{Field: Square13, Label: "See a Movie in IMAX"},
	{Field: Square14, Label: "Purchase Any Hot Food"},
}

// Challenges returns a copy of the card definition in row-major order.
func Challenges() []Challenge {
	out := make([]Challenge, NumCells)
	copy(out, challenges[:])
	return out
}

// Lookup returns the definition of a completable square.
func Lookup(id ChallengeID) (Challenge, bool) {
	for _, c := range challenges {
		if !c.IsFree && c.Field == id {
			return c, true
		}
	}
	return Challenge{}, false
}

// Squares is the completion flag of every completable square, indexed by ChallengeID-1.
type Squares [NumSquares]bool

func (s Squares) Checked(id ChallengeID) bool {
	if !id.IsValid() {
		return false
	}
	return s[id-1]
}

func (s *Squares) Set(id ChallengeID, checked bool) {
	if id.IsValid() {
		s[id-1] = checked
	}
}

// Count returns the number of checked squares.
func (s Squares) Count() int {
	var n int
	for _, checked := range s {
		if checked {
			n++
		}
	}
	return n
}

// Progress is a participant's completion record.
type Progress struct {
	ParticipantID string
	Squares       Squares
	UpdatedAt     time.Time // UTC
}

// MarshalJSON renders the record as {"participant_id", "square_1".."square_14", "updated_at"}.
func (p Progress) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, NumSquares+2)
	m["participant_id"] = p.ParticipantID
	for i, checked := range p.Squares {
		m[ChallengeID(i+1).String()] = checked
	}
	m["updated_at"] = p.UpdatedAt
	return json.Marshal(m)
}

// Cell is one renderable card cell.
type Cell struct {
	Field   ChallengeID `json:"field"`
	Label   string      `json:"label"`
	IsFree  bool        `json:"is_free"`
	Checked bool        `json:"checked"`

	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"` // manager view only
}

// Board is a renderable card.
type Board struct {
	Columns   int    `json:"columns"`
	Cells     []Cell `json:"cells"`
	Completed int    `json:"completed"`
}

// BuildBoard maps a completion record onto the card, in row-major order.
// A nil record yields an empty card; the free cell is always checked.
func BuildBoard(p *Progress) []Cell {
	cells := make([]Cell, 0, NumCells)
	for _, c := range challenges {
		checked := c.IsFree
		if !checked && p != nil {
			checked = p.Squares.Checked(c.Field)
		}
		cells = append(cells, Cell{Field: c.Field, Label: c.Label, IsFree: c.IsFree, Checked: checked})
	}
	return cells
}

// LayoutForWidth reorders a row-major sequence into column-major order for the given column count.
// The sequence is cut in rows of `columns` items (the last one may be short) then read column by
// column, skipping absent items. With 15 items, applying it with 3 then with 5 restores the input.
func LayoutForWidth[T any](cells []T, columns int) []T {
	out := make([]T, 0, len(cells))
	if columns <= 0 {
		return append(out, cells...)
	}
	rows := (len(cells) + columns - 1) / columns
	for col := 0; col < columns; col++ {
		for row := 0; row < rows; row++ {
			if i := row*columns + col; i < len(cells) {
				out = append(out, cells[i])
			}
		}
	}
	return out
}

// WithLastChecked annotates checked cells with the time they were last checked.
func WithLastChecked(cells []Cell, checkedAt map[ChallengeID]time.Time) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		if at, ok := checkedAt[c.Field]; ok && c.Checked && !c.IsFree {
			at := at
			c.LastCheckedAt = &at
		}
		out[i] = c
	}
	return out
}

// NewBoard builds the card for p. columns == Columns keeps the natural layout;
// any other positive width returns the column-major reading used by narrow screens,
// which is NarrowColumns wide.
func NewBoard(p *Progress, columns int) Board {
	cells := BuildBoard(p)
	if columns > 0 && columns != Columns {
		cells = LayoutForWidth(cells, Columns)
		columns = NarrowColumns
	} else {
		columns = Columns
	}
	var completed int
	for _, c := range cells {
		if c.Checked && !c.IsFree {
			completed++
		}
	}
	return Board{Columns: columns, Cells: cells, Completed: completed}
}
