package board

// Notes stores per-cell candidate digit annotations. Each cell's notes are
// a set of digits 1-9, meaningful only while the cell is empty in the
// working grid. The engine clears a cell's notes the instant the cell
// receives a value.
//
// Internally each cell is a 9-bit mask, which makes toggles O(1) and keeps
// the ascending-sorted digit listing deterministic for display.
type Notes struct {
	masks [NumCells]uint16
}

// Toggle adds digit d to the cell's note set if absent, removes it if
// present. Digits outside 1-9 are ignored.
func (n *Notes) Toggle(index int, d uint8) {
	if d < 1 || d > 9 {
		return
	}
	n.masks[index] ^= 1 << (d - 1)
}

// Has reports whether digit d is noted on the cell.
func (n *Notes) Has(index int, d uint8) bool {
	if d < 1 || d > 9 {
		return false
	}
	return n.masks[index]&(1<<(d-1)) != 0
}

// Clear removes all notes from the cell.
func (n *Notes) Clear(index int) {
	n.masks[index] = 0
}

// ClearAll removes every note on the board.
func (n *Notes) ClearAll() {
	n.masks = [NumCells]uint16{}
}

// Digits returns the cell's noted digits in ascending order.
func (n *Notes) Digits(index int) []uint8 {
	m := n.masks[index]
	if m == 0 {
		return nil
	}
	out := make([]uint8, 0, 9)
	for d := uint8(1); d <= 9; d++ {
		if m&(1<<(d-1)) != 0 {
			out = append(out, d)
		}
	}
	return out
}
