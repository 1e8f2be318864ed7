package wizard

import (
	"testing"

	"github.com/serikovn/nexpr-update/internal/disruption"
)

func run(t *testing.T, inputs ...Input) (Step, []Result) {
	t.Helper()
	step := Start()
	var results []Result
	for _, in := range inputs {
		r := Advance(step, in)
		results = append(results, r)
		step = r.Next
	}
	return step, results
}

func TestWizardCommitsTwoPhotos(t *testing.T) {
	native := disruption.MediaRef{Type: disruption.MediaPhoto, File: "AgACAgIAAxkBAAI"}
	step, results := run(t,
		Text{Body: "Route A"},
		Text{Body: "D"},
		Text{Body: "E"},
		Attachment{Media: native},
		Text{Body: "https://cdn.example.com/pic.png"},
		Text{Body: "Готово"},
	)
	if step != nil {
		t.Fatalf("session must end after commit, got step %s", StepName(step))
	}
	last := results[len(results)-1]
	if last.Outcome != Committed {
		t.Fatalf("outcome = %s, want committed", last.Outcome)
	}
	p := last.Problem
	if p.Name != "Route A" || p.Description != "D" || p.ETA != "E" {
		t.Fatalf("problem = %+v", p)
	}
	if len(p.Media) != 2 {
		t.Fatalf("media = %+v, want 2 entries", p.Media)
	}
	for i, m := range p.Media {
		if m.Type != disruption.MediaPhoto {
			t.Fatalf("media[%d] type = %s, want photo", i, m.Type)
		}
	}
	if p.Media[0] != native {
		t.Fatalf("native attachment changed: %+v", p.Media[0])
	}
}

func TestWizardStepsAreLinear(t *testing.T) {
	want := []string{"description", "eta", "media"}
	step := Start()
	for i, body := range []string{"n", "d", "e"} {
		r := Advance(step, Text{Body: body})
		if r.Outcome != Advanced {
			t.Fatalf("step %d outcome = %s", i, r.Outcome)
		}
		if StepName(r.Next) != want[i] {
			t.Fatalf("step %d next = %s, want %s", i, StepName(r.Next), want[i])
		}
		step = r.Next
	}
}

func TestWizardAttachmentBeforeMediaStepIsIgnored(t *testing.T) {
	step := CollectingETA{Name: "n", Description: "d"}
	r := Advance(step, Attachment{Media: disruption.MediaRef{Type: disruption.MediaVideo, File: "x"}})
	if r.Outcome != Ignored {
		t.Fatalf("outcome = %s, want ignored", r.Outcome)
	}
	if r.Next != step {
		t.Fatalf("step changed to %s", StepName(r.Next))
	}
}

func TestWizardRejectsPlainTextDuringMedia(t *testing.T) {
	step := CollectingMedia{Problem: disruption.Problem{Name: "n", Media: []disruption.MediaRef{}}}
	r := Advance(step, Text{Body: "вот фото"})
	if r.Outcome != Rejected {
		t.Fatalf("outcome = %s, want rejected", r.Outcome)
	}
	if StepName(r.Next) != "media" {
		t.Fatalf("session must stay at media, got %s", StepName(r.Next))
	}
}

func TestWizardMediaCopyDoesNotAliasPreviousStep(t *testing.T) {
	base := CollectingMedia{Problem: disruption.Problem{Name: "n", Media: make([]disruption.MediaRef, 0, 4)}}
	a := Advance(base, Text{Body: "https://x/a.mp4"}).Next.(CollectingMedia)
	b := Advance(base, Text{Body: "https://x/b.jpg"}).Next.(CollectingMedia)
	if a.Problem.Media[0].File != "https://x/a.mp4" || b.Problem.Media[0].File != "https://x/b.jpg" {
		t.Fatalf("branches share storage: %+v / %+v", a.Problem.Media, b.Problem.Media)
	}
	if len(base.Problem.Media) != 0 {
		t.Fatal("base step mutated")
	}
}

func TestIsTerminator(t *testing.T) {
	for _, s := range []string{"готово", "ГОТОВО", "Done", "DONE"} {
		if !IsTerminator(s) {
			t.Fatalf("%q should terminate", s)
		}
	}
	for _, s := range []string{"готово!", "done.", "", "not done", " готово ", "done\n"} {
		if IsTerminator(s) {
			t.Fatalf("%q should not terminate", s)
		}
	}
}

func TestWizardPaddedTerminatorKeepsSessionOpen(t *testing.T) {
	step := CollectingMedia{Problem: disruption.Problem{Name: "n", Media: []disruption.MediaRef{}}}
	r := Advance(step, Text{Body: " готово "})
	if r.Outcome != Rejected || StepName(r.Next) != "media" {
		t.Fatalf("outcome = %s, next = %s", r.Outcome, StepName(r.Next))
	}
}
