package server

import (
	"fmt"

	"hide-and-hunt/server/internal/nav/grid"
	"hide-and-hunt/server/internal/world"
)

// arenaLayout is the authored geometry for one arena kind: the mesh size and
// every point of interest placed on it. Positions are cell centers; raised
// positions carry their elevation in Y.
type arenaLayout struct {
	cols, rows int

	spawns      []world.Vec3
	hunterSpawn world.Vec3

	jail    world.Vec3
	hasJail bool

	buttons  []world.Vec3
	door     world.Vec3
	consoles []world.Vec3
	relics   []world.Vec3
}

// buildArena constructs the mesh and layout for an arena kind.
func buildArena(kind world.ArenaKind) (*grid.Mesh, arenaLayout, error) {
	switch kind {
	case world.ArenaStandard:
		mesh, layout := buildStandardArena()
		return mesh, layout, nil
	case world.ArenaRelic:
		mesh, layout := buildRelicArena()
		return mesh, layout, nil
	case world.ArenaConsole:
		mesh, layout := buildConsoleArena()
		return mesh, layout, nil
	default:
		return nil, arenaLayout{}, fmt.Errorf("unknown arena kind %q", kind)
	}
}

// perimeter blocks the outermost ring of cells.
func perimeter(mesh *grid.Mesh, cols, rows int) {
	mesh.BlockRect(0, 0, cols-1, 0)
	mesh.BlockRect(0, rows-1, cols-1, rows-1)
	mesh.BlockRect(0, 1, 0, rows-2)
	mesh.BlockRect(cols-1, 1, cols-1, rows-2)
}

// cell returns the center of a grid cell at the given elevation.
func cell(col, row int, y float64) world.Vec3 {
	return world.Vec3{X: (float64(col) + 0.5) * grid.DefaultCellSize, Y: y, Z: (float64(row) + 0.5) * grid.DefaultCellSize}
}

// buildStandardArena authors the button-and-door arena: a central dividing
// wall with one gap, a jail pen in the southwest, and a raised ledge in the
// northeast reachable only across a jump link. One console sits on the ledge
// so color-matched bots have to take the jump.
func buildStandardArena() (*grid.Mesh, arenaLayout) {
	const cols, rows = 48, 32
	mesh := grid.NewMesh(grid.Config{Cols: cols, Rows: rows, CellSize: grid.DefaultCellSize})
	perimeter(mesh, cols, rows)

	// Central wall, gap at rows 13-18.
	mesh.BlockRect(22, 1, 23, 12)
	mesh.BlockRect(22, 19, 23, 30)

	// Jail pen against the southwest corner, entrance through cols 1-3.
	mesh.BlockRect(4, 24, 9, 24)
	mesh.BlockRect(10, 25, 10, 30)

	// Northeast ledge, jump access from (37,5).
	const ledgeHeight = 1.2
	mesh.Raise(38, 2, 45, 8, ledgeHeight)
	mesh.Link(37, 5, 38, 5)

	layout := arenaLayout{
		cols: cols,
		rows: rows,
		spawns: []world.Vec3{
			cell(2, 8, 0), cell(2, 12, 0), cell(2, 16, 0), cell(2, 20, 0),
			cell(4, 10, 0), cell(4, 14, 0), cell(4, 18, 0), cell(6, 12, 0),
		},
		hunterSpawn: cell(36, 16, 0),
		jail:        cell(6, 27, 0),
		hasJail:     true,
		buttons: []world.Vec3{
			cell(14, 4, 0), cell(30, 26, 0), cell(44, 16, 0),
		},
		door: cell(45, 16, 0),
		consoles: []world.Vec3{
			cell(42, 5, ledgeHeight), // red, up on the ledge
			cell(3, 3, 0),            // blue
			cell(26, 2, 0),           // green
			cell(18, 29, 0),          // yellow
		},
	}
	return mesh, layout
}

// buildRelicArena authors the relic scatter: four pillars, a central raised
// plinth holding one relic behind a jump link, and a jail pen in the
// northeast.
func buildRelicArena() (*grid.Mesh, arenaLayout) {
	const cols, rows = 40, 40
	mesh := grid.NewMesh(grid.Config{Cols: cols, Rows: rows, CellSize: grid.DefaultCellSize})
	perimeter(mesh, cols, rows)

	mesh.BlockRect(10, 10, 13, 13)
	mesh.BlockRect(26, 10, 29, 13)
	mesh.BlockRect(10, 26, 13, 29)
	mesh.BlockRect(26, 26, 29, 29)

	const plinthHeight = 1.2
	mesh.Raise(18, 18, 21, 21, plinthHeight)
	mesh.Link(17, 19, 18, 19)

	// Jail pen against the northeast corner, entrance through cols 36-38.
	mesh.BlockRect(32, 1, 32, 6)
	mesh.BlockRect(33, 6, 35, 6)

	layout := arenaLayout{
		cols: cols,
		rows: rows,
		spawns: []world.Vec3{
			cell(7, 36, 0), cell(12, 36, 0), cell(17, 36, 0),
			cell(22, 36, 0), cell(27, 36, 0), cell(32, 36, 0),
		},
		hunterSpawn: cell(20, 10, 0),
		jail:        cell(35, 3, 0),
		hasJail:     true,
		relics: []world.Vec3{
			cell(5, 5, 0),
			cell(34, 34, 0),
			cell(5, 34, 0),
			cell(19, 19, plinthHeight), // on the plinth
			cell(34, 12, 0),
			cell(12, 20, 0),
		},
	}
	return mesh, layout
}

// buildConsoleArena authors the console pairing arena: two staggered baffle
// walls and one console per team color in the corners.
func buildConsoleArena() (*grid.Mesh, arenaLayout) {
	const cols, rows = 36, 24
	mesh := grid.NewMesh(grid.Config{Cols: cols, Rows: rows, CellSize: grid.DefaultCellSize})
	perimeter(mesh, cols, rows)

	mesh.BlockRect(6, 8, 20, 8)
	mesh.BlockRect(15, 15, 29, 15)

	layout := arenaLayout{
		cols: cols,
		rows: rows,
		spawns: []world.Vec3{
			cell(17, 11, 0), cell(13, 12, 0), cell(21, 11, 0),
			cell(17, 13, 0), cell(15, 10, 0),
		},
		hunterSpawn: cell(28, 11, 0),
		consoles: []world.Vec3{
			cell(31, 3, 0),  // red
			cell(3, 20, 0),  // blue
			cell(31, 20, 0), // green
			cell(3, 3, 0),   // yellow
		},
	}
	return mesh, layout
}
