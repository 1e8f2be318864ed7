// Package wizard implements the four-step admin conversation that assembles
// a new problem: name, description, ETA, then any number of attachments
// closed by a terminator word.
package wizard

import (
	"strings"

	"github.com/serikovn/nexpr-update/internal/disruption"
)

// Step is the conversation position. The set of implementations is closed:
// CollectingName, CollectingDescription, CollectingETA, CollectingMedia.
type Step interface {
	stepName() string
}

// CollectingName waits for the route name.
type CollectingName struct{}

// CollectingDescription waits for the description of route Name.
type CollectingDescription struct {
	Name string
}

// CollectingETA waits for the free-text resolution estimate.
type CollectingETA struct {
	Name        string
	Description string
}

// CollectingMedia accumulates attachments until a terminator arrives.
type CollectingMedia struct {
	Problem disruption.Problem
}

func (CollectingName) stepName() string        { return "name" }
func (CollectingDescription) stepName() string { return "description" }
func (CollectingETA) stepName() string         { return "eta" }
func (CollectingMedia) stepName() string       { return "media" }

// StepName returns the short log name of s.
func StepName(s Step) string {
	if s == nil {
		return "none"
	}
	return s.stepName()
}

// Start is the step every fresh session begins with.
func Start() Step {
	return CollectingName{}
}

// Input is what the admin sent: Text or Attachment.
type Input interface {
	input()
}

// Text is a free-text message that is not a command.
type Text struct {
	Body string
}

// Attachment is a photo or video forwarded from the admin's device.
type Attachment struct {
	Media disruption.MediaRef
}

func (Text) input()       {}
func (Attachment) input() {}

// Outcome tells the caller what a transition did.
type Outcome int

const (
	// Ignored means the input does not apply to the current step; the session is unchanged.
	Ignored Outcome = iota
	// Advanced means the step moved forward and the next prompt is due.
	Advanced
	// MediaAdded means an attachment was appended; the step stays at media.
	MediaAdded
	// Rejected means free text during the media step was neither a link nor a terminator.
	Rejected
	// Committed means the problem is complete and the session ends.
	Committed
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case MediaAdded:
		return "media_added"
	case Rejected:
		return "rejected"
	case Committed:
		return "committed"
	default:
		return "ignored"
	}
}

// Result is the outcome of one transition. Next is the step to store; it is
// nil after a commit. Media is set for MediaAdded, Problem for Committed.
type Result struct {
	Outcome Outcome
	Next    Step
	Media   disruption.MediaRef
	Problem disruption.Problem
}

var terminators = []string{"готово", "done"}

// IsTerminator reports whether text closes the media step.
func IsTerminator(text string) bool {
	for _, t := range terminators {
		if strings.EqualFold(text, t) {
			return true
		}
	}
	return false
}

// Advance applies in to step. It never mutates step.
func Advance(step Step, in Input) Result {
	switch s := step.(type) {
	case CollectingName:
		text, ok := in.(Text)
		if !ok {
			return Result{Outcome: Ignored, Next: s}
		}
		return Result{Outcome: Advanced, Next: CollectingDescription{Name: text.Body}}

	case CollectingDescription:
		text, ok := in.(Text)
		if !ok {
			return Result{Outcome: Ignored, Next: s}
		}
		return Result{Outcome: Advanced, Next: CollectingETA{Name: s.Name, Description: text.Body}}

	case CollectingETA:
		text, ok := in.(Text)
		if !ok {
			return Result{Outcome: Ignored, Next: s}
		}
		return Result{Outcome: Advanced, Next: CollectingMedia{Problem: disruption.Problem{
			Name:        s.Name,
			Description: s.Description,
			ETA:         text.Body,
			Media:       []disruption.MediaRef{},
		}}}

	case CollectingMedia:
		return advanceMedia(s, in)
	}
	return Result{Outcome: Ignored, Next: step}
}

func advanceMedia(s CollectingMedia, in Input) Result {
	switch v := in.(type) {
	case Attachment:
		return Result{Outcome: MediaAdded, Next: s.with(v.Media), Media: v.Media}
	case Text:
		switch {
		case IsTerminator(v.Body):
			return Result{Outcome: Committed, Problem: s.Problem}
		case disruption.IsLink(v.Body):
			ref := disruption.ClassifyLink(v.Body)
			return Result{Outcome: MediaAdded, Next: s.with(ref), Media: ref}
		default:
			return Result{Outcome: Rejected, Next: s}
		}
	}
	return Result{Outcome: Ignored, Next: s}
}

// with returns a copy of s with ref appended; the original media slice is not shared.
func (s CollectingMedia) with(ref disruption.MediaRef) CollectingMedia {
	media := make([]disruption.MediaRef, 0, len(s.Problem.Media)+1)
	media = append(media, s.Problem.Media...)
	media = append(media, ref)
	p := s.Problem
	p.Media = media
	return CollectingMedia{Problem: p}
}
