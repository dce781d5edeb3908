package project

import "testing"

var testDefaults = Defaults{
	POV:          "Third Person Limited",
	POVCharacter: "Character",
	Tense:        "Present Tense",
}

func TestEffectivePOVTenseWriteBackIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ch, _ := store.CreateChapter("C")
	sc, _ := store.CreateScene(ch.ID, "S", "body")

	p := NewContextProvider(store, testDefaults)

	pov, povChar, tense, err := p.EffectivePOVTense(sc.ID)
	if err != nil {
		t.Fatalf("effective pov/tense: %v", err)
	}
	if pov != testDefaults.POV || povChar != testDefaults.POVCharacter || tense != testDefaults.Tense {
		t.Fatalf("defaults not applied: %q %q %q", pov, povChar, tense)
	}

	// Fallback was persisted onto the scene.
	persisted, _ := store.LoadScene(sc.ID)
	if persisted.POV == "" || persisted.POVCharacter == "" || persisted.Tense == "" {
		t.Fatalf("write-back missing: %+v", persisted)
	}
	firstUpdate := persisted.UpdatedAt

	// Second call returns identical values and performs no further mutation.
	pov2, povChar2, tense2, err := p.EffectivePOVTense(sc.ID)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if pov2 != pov || povChar2 != povChar || tense2 != tense {
		t.Fatalf("second read differs: %q %q %q", pov2, povChar2, tense2)
	}
	after, _ := store.LoadScene(sc.ID)
	if !after.UpdatedAt.Equal(firstUpdate) {
		t.Fatalf("second call mutated the scene: %v != %v", after.UpdatedAt, firstUpdate)
	}
}

func TestEffectivePOVTensePrefersSceneValues(t *testing.T) {
	store := newTestStore(t)
	ch, _ := store.CreateChapter("C")
	sc, _ := store.CreateScene(ch.ID, "S", "body")

	sc.POV = "First Person"
	sc.Tense = "Past Tense"
	if err := store.SaveScene(sc); err != nil {
		t.Fatalf("save scene: %v", err)
	}

	p := NewContextProvider(store, testDefaults)
	pov, povChar, tense, err := p.EffectivePOVTense(sc.ID)
	if err != nil {
		t.Fatalf("effective pov/tense: %v", err)
	}
	if pov != "First Person" || tense != "Past Tense" {
		t.Fatalf("scene values lost: %q %q", pov, tense)
	}
	// Only the absent field fell back.
	if povChar != testDefaults.POVCharacter {
		t.Fatalf("pov character fallback: %q", povChar)
	}
}

func TestSceneVariables(t *testing.T) {
	store := newTestStore(t)
	ch, _ := store.CreateChapter("C")
	sc, _ := store.CreateScene(ch.ID, "S", "four words right here")

	p := NewContextProvider(store, testDefaults)
	vars, err := p.SceneVariables(sc.ID)
	if err != nil {
		t.Fatalf("scene variables: %v", err)
	}
	if vars["story_so_far"] != "four words right here" {
		t.Fatalf("story_so_far: %q", vars["story_so_far"])
	}
	if vars["wordCount"] != "4" {
		t.Fatalf("wordCount: %q", vars["wordCount"])
	}
	if vars["pov"] != testDefaults.POV || vars["tense"] != testDefaults.Tense {
		t.Fatalf("narrative settings: %q %q", vars["pov"], vars["tense"])
	}
}

func TestBuildRegistrySnapshot(t *testing.T) {
	reg := BuildRegistry("Nightfall", testDefaults)
	snap := reg.Snapshot()

	if snap["projectName"] != "Nightfall" {
		t.Fatalf("projectName: %q", snap["projectName"])
	}
	if snap["pov"] != testDefaults.POV {
		t.Fatalf("pov: %q", snap["pov"])
	}
	if snap["outputWordCount"] != "200" {
		t.Fatalf("outputWordCount: %q", snap["outputWordCount"])
	}
	if snap["currentDate"] == "" {
		t.Fatalf("currentDate should be populated")
	}
}
