package world

// ArenaKind selects which objective set an arena offers and therefore which
// decision branches its bots are assembled with.
type ArenaKind string

const (
	// ArenaStandard has pressure buttons, a jail, and an exit door.
	ArenaStandard ArenaKind = "standard"
	// ArenaRelic scatters collectible relics across the arena.
	ArenaRelic ArenaKind = "relic"
	// ArenaConsole pairs each bot with color-coded consoles.
	ArenaConsole ArenaKind = "console"
)

// ConsoleColor tags a console objective with the team color that may use it.
type ConsoleColor string

const (
	ColorNone   ConsoleColor = ""
	ColorRed    ConsoleColor = "red"
	ColorBlue   ConsoleColor = "blue"
	ColorGreen  ConsoleColor = "green"
	ColorYellow ConsoleColor = "yellow"
)

// Colors lists the assignable console colors in slot order.
func Colors() []ConsoleColor {
	return []ConsoleColor{ColorRed, ColorBlue, ColorGreen, ColorYellow}
}
