package models

// GameStatus is the lifecycle status of a play-through.
type GameStatus string

const (
	StatusStartScreen GameStatus = "start_screen"
	StatusPlaying     GameStatus = "playing"
)

// Heroine is one member of the character roster. The roster is replaced
// wholesale on every turn; the generation backend is the source of truth.
type Heroine struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Archetype   string `json:"archetype"`
	Affection   int    `json:"affection"` // 0-100
	Status      string `json:"status"`    // relationship status label
	Description string `json:"description"`
}

// Choice is a single selectable option for the player. A scene with exactly
// one choice is a linear (non-branching) turn.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// UnlockCG describes a one-shot special event attached to a turn.
type UnlockCG struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GameState is the authoritative snapshot of one play-through.
type GameState struct {
	PlayerName     string    `json:"playerName"`
	Narrative      string    `json:"narrative"`
	Choices        []Choice  `json:"choices"`
	Heroines       []Heroine `json:"heroines"`
	Inventory      []string  `json:"inventory"`
	CurrentQuest   string    `json:"currentQuest"`
	Location       string    `json:"location"`
	ImagePrompt    string    `json:"imagePrompt"`
	TurnCount      int       `json:"turnCount"`
	History        []string  `json:"history"`
	UnlockCG       *UnlockCG `json:"unlockCg,omitempty"`
	CurrentBgImage string    `json:"currentBgImage,omitempty"`
	Theme          string    `json:"theme"`
	BGM            string    `json:"bgm,omitempty"`
	SoundEffect    string    `json:"soundEffect,omitempty"`
	Language       string    `json:"language"`
}

// Clone returns a deep copy of the state. The engine hands out copies so the
// live snapshot has a single owner.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Choices = append([]Choice(nil), s.Choices...)
	cp.Heroines = append([]Heroine(nil), s.Heroines...)
	cp.Inventory = append([]string(nil), s.Inventory...)
	cp.History = append([]string(nil), s.History...)
	if s.UnlockCG != nil {
		cg := *s.UnlockCG
		cp.UnlockCG = &cg
	}
	return &cp
}

// SceneResult is the structured scene returned by the generation backend for
// a single turn.
type SceneResult struct {
	Narrative    string    `json:"narrative"`
	Choices      []Choice  `json:"choices"`
	Heroines     []Heroine `json:"heroines"`
	Inventory    []string  `json:"inventory"`
	CurrentQuest string    `json:"currentQuest"`
	Location     string    `json:"location"`
	ImagePrompt  string    `json:"imagePrompt"` // empty when the background is unchanged
	UnlockCG     *UnlockCG `json:"unlockCg,omitempty"`
	BGM          string    `json:"bgm,omitempty"`
	SoundEffect  string    `json:"soundEffect,omitempty"`
}

// SecretMemory is the bonus-content payload generated for a heroine.
type SecretMemory struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt"`
}
