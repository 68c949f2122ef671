package domain

import "strconv"

// CellID identifies a hex by world column and row. The row index is already
// parity-adjusted: odd columns are offset by the layout, not by the key.
type CellID struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

func (id CellID) String() string {
	return strconv.Itoa(id.Col) + ":" + strconv.Itoa(id.Row)
}

// CellState is the per-frame interaction state of a cell.
type CellState string

const (
	CellIdle   CellState = "IDLE"
	CellMine   CellState = "MINE"  // user bet (pink)
	CellOther  CellState = "OTHER" // simulated other-user bet (yellow)
	CellHit    CellState = "HIT"   // settled this session
	CellPassed CellState = "PASSED"
)

// Cell is a projected hex for one frame. Never stored.
type Cell struct {
	ID      CellID    `json:"id"`
	WorldX  float64   `json:"world_x"`
	WorldY  float64   `json:"world_y"`
	ScreenX float64   `json:"screen_x"`
	ScreenY float64   `json:"screen_y"`
	Radius  float64   `json:"radius"` // screen units
	Price   float64   `json:"price"`
	Passed  bool      `json:"passed"`
	State   CellState `json:"state"`
}
