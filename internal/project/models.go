package project

import "time"

// Scene is the smallest narrative unit: its own body text, a derived summary,
// and optional narrative settings. Empty POV/POVCharacter/Tense mean "use the
// ambient defaults"; they are filled in and persisted on first effective read
// so the scene is self-describing afterwards.
type Scene struct {
	ID           string
	ChapterID    string
	Name         string
	Position     int
	Body         string
	Summary      string
	POV          string
	POVCharacter string
	Tense        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chapter is a named, ordered sequence of scenes. It owns only the ordering;
// its summary is always derived from the child scenes and never stored.
type Chapter struct {
	ID       string
	Name     string
	Position int
}

// Defaults are the ambient narrative settings substituted when a scene lacks
// its own.
type Defaults struct {
	POV          string
	POVCharacter string
	Tense        string
}
