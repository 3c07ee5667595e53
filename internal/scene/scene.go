// Package scene holds the pure state transitions of a play-through. Nothing
// here performs I/O; every function is deterministic given its inputs.
package scene

import (
	"strings"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

// ApplyNewTurn folds a generated scene into a new GameState.
//
// On a reset the turn counter restarts at 1 and history begins with this
// scene's narrative; the previous state is ignored entirely. Otherwise the
// counter increments, the narrative is appended to history, and the background
// image carries over until the engine resolves a new one. All remaining fields
// are replaced wholesale from the scene, except that an empty imagePrompt
// keeps the previous one (the backend omits it when the background is
// unchanged).
func ApplyNewTurn(prev *models.GameState, sc *models.SceneResult, isReset bool, playerName, theme, language string) *models.GameState {
	st := &models.GameState{
		PlayerName:   playerName,
		Narrative:    sc.Narrative,
		Choices:      append([]models.Choice(nil), sc.Choices...),
		Heroines:     append([]models.Heroine(nil), sc.Heroines...),
		Inventory:    append([]string(nil), sc.Inventory...),
		CurrentQuest: sc.CurrentQuest,
		Location:     sc.Location,
		ImagePrompt:  sc.ImagePrompt,
		UnlockCG:     sc.UnlockCG,
		Theme:        theme,
		BGM:          sc.BGM,
		SoundEffect:  sc.SoundEffect,
		Language:     language,
	}

	if isReset || prev == nil {
		st.TurnCount = 1
		st.History = []string{sc.Narrative}
		return st
	}

	st.TurnCount = prev.TurnCount + 1
	st.History = append(append([]string(nil), prev.History...), sc.Narrative)
	st.CurrentBgImage = prev.CurrentBgImage
	if sc.ImagePrompt == "" {
		st.ImagePrompt = prev.ImagePrompt
	}
	return st
}

// IsLinearScene reports whether the state is a non-branching turn: exactly one
// choice. Linear turns are eligible for speculative prefetch and UI
// auto-advance.
func IsLinearScene(st *models.GameState) bool {
	return st != nil && len(st.Choices) == 1
}

// Dialogue is a narrative line split into speaker and content.
type Dialogue struct {
	Speaker string
	Content string
}

const speakerColonLimit = 20

// ResolveSpeaker splits a narrative line of the form "Name: dialogue" into
// speaker and content. A full-width colon takes precedence when present (used
// by CJK output). The colon must appear within the first 20 characters, else
// the whole line is treated as content with no speaker.
//
// Known limitation: a line starting with a number and a colon (e.g. a
// timestamp like "12:00") is parsed as speaker "12". Kept for rendering parity
// with the original log view.
func ResolveSpeaker(line string) Dialogue {
	colon := ":"
	if strings.Contains(line, "：") {
		colon = "："
	}

	runes := []rune(line)
	idx := -1
	for i, r := range runes {
		if string(r) == colon {
			idx = i
			break
		}
	}

	if idx == -1 || idx >= speakerColonLimit {
		return Dialogue{Content: line}
	}
	return Dialogue{
		Speaker: string(runes[:idx]),
		Content: strings.TrimSpace(string(runes[idx+1:])),
	}
}
