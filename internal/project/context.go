package project

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kayz/inkwright/internal/prompt"
)

// ContextProvider supplies scene-scoped render context. A scene's persisted
// narrative settings win over the ambient defaults; any missing setting is
// substituted from the defaults and written back so the scene is
// self-contained on every later read.
type ContextProvider struct {
	store    *Store
	defaults Defaults
}

// NewContextProvider creates a provider over the store with ambient defaults.
func NewContextProvider(store *Store, defaults Defaults) *ContextProvider {
	return &ContextProvider{store: store, defaults: defaults}
}

// EffectivePOVTense returns the scene's point of view, POV character and
// tense, falling back to the ambient defaults for absent fields. The fallback
// is persisted onto the scene; repeated calls after the first are pure reads.
func (p *ContextProvider) EffectivePOVTense(sceneID string) (pov, povCharacter, tense string, err error) {
	sc, err := p.store.LoadScene(sceneID)
	if err != nil {
		return "", "", "", err
	}

	changed := false
	if sc.POV == "" {
		sc.POV = p.defaults.POV
		changed = true
	}
	if sc.POVCharacter == "" {
		sc.POVCharacter = p.defaults.POVCharacter
		changed = true
	}
	if sc.Tense == "" {
		sc.Tense = p.defaults.Tense
		changed = true
	}
	if changed {
		if err := p.store.SaveScene(sc); err != nil {
			return "", "", "", err
		}
	}
	return sc.POV, sc.POVCharacter, sc.Tense, nil
}

// SceneVariables builds the scene-scoped overlay used on top of the global
// snapshot for one render. Global state is never mutated.
func (p *ContextProvider) SceneVariables(sceneID string) (map[string]string, error) {
	pov, povCharacter, tense, err := p.EffectivePOVTense(sceneID)
	if err != nil {
		return nil, err
	}
	sc, err := p.store.LoadScene(sceneID)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"pov":           pov,
		"pov_character": povCharacter,
		"tense":         tense,
		"story_so_far":  sc.Body,
		"wordCount":     humanize.Comma(int64(len(strings.Fields(sc.Body)))),
	}, nil
}

// BuildRegistry assembles the global variable registry: ambient narrative
// settings, project metadata, and empty placeholders for the values a shell
// fills in at send time (user_input, selectedText, ...).
func BuildRegistry(projectName string, defaults Defaults) *prompt.Registry {
	reg := prompt.NewRegistry()
	reg.Register("pov", prompt.Constant(defaults.POV))
	reg.Register("pov_character", prompt.Constant(defaults.POVCharacter))
	reg.Register("tense", prompt.Constant(defaults.Tense))
	reg.Register("projectName", prompt.Constant(projectName))
	reg.Register("story_so_far", prompt.Constant(""))
	reg.Register("sceneBeat", prompt.Constant(""))
	reg.Register("context", prompt.Constant(""))
	reg.Register("user_input", prompt.Constant(""))
	reg.Register("selectedText", prompt.Constant(""))
	reg.Register("additionalInstructions", prompt.Constant(""))
	reg.Register("outputWordCount", prompt.Constant("200"))
	reg.Register("wordCount", prompt.Constant("0"))
	reg.Register("currentDate", prompt.Thunk(func() (string, error) {
		return time.Now().Format("January 2, 2006"), nil
	}))
	return reg
}
