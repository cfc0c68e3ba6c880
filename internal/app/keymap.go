package app

// Key binding constants used in the screen key handlers.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeyEsc       = "esc"
	KeySpace     = " "
	KeyTab       = "tab"
	KeyShiftTab  = "shift+tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyPgUp      = "pgup"
	KeyPgDown    = "pgdown"
	KeyJ         = "j"
	KeyK         = "k"
	KeyEnter     = "enter"
	KeyRefresh   = "r"
	KeyCreate    = "c"
	KeyYes       = "y"
	KeyNo        = "n"
	KeyEnd       = "G"
)
