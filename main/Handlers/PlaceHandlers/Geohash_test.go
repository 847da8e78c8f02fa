package PlaceHandlers

import "testing"

func TestNearbyCells(t *testing.T) {
	louvre := Coordinate{Latitude: 48.8606, Longitude: 2.3376}
	cells := NearbyCells(louvre)
	if len(cells) != 9 {
		t.Fatalf("got %d cells, want 9", len(cells))
	}
	if cells[0] != Cell(louvre) || len(cells[0]) != cellPrecision {
		t.Errorf("center cell = %q", cells[0])
	}
	seen := map[string]bool{}
	for _, cell := range cells {
		if seen[cell] {
			t.Errorf("duplicate cell %q", cell)
		}
		seen[cell] = true
	}

	// a few hundred meters away lands in the same or a neighbouring cell
	if !seen[Cell(Coordinate{Latitude: 48.8625, Longitude: 2.3400})] {
		t.Error("nearby point not covered")
	}
	if seen[Cell(Coordinate{Latitude: 51.5, Longitude: -0.12})] {
		t.Error("London should not be near Paris")
	}
}

func TestKeyCell(t *testing.T) {
	c := Coordinate{Latitude: -33.8568, Longitude: 151.2153}
	if got := KeyCell(Encode("Opera House", "Sydney", c)); got != Cell(c) {
		t.Errorf("KeyCell = %q, want %q", got, Cell(c))
	}
	if got := KeyCell("broken"); got != "" {
		t.Errorf("KeyCell(broken) = %q", got)
	}
}
