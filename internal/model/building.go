package model

// Building is one owned building type as decoded from the save.
type Building struct {
	Name     string
	Amount   int
	Level    int
	Minigame string // raw minigame save, only set for buildings that host one
}
