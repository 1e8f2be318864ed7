package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type recorder struct {
	sent    []int64
	blocked map[int64]bool
}

func (r *recorder) Deliver(_ context.Context, recipient int64, _ string) error {
	if r.blocked[recipient] {
		return errors.New("telegram: bot was blocked by the user (403)")
	}
	r.sent = append(r.sent, recipient)
	return nil
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	r := &recorder{blocked: map[int64]bool{2: true}}
	res := Broadcast(context.Background(), r, "new_problem", []int64{1, 2, 3}, "hi")

	if res.Recipients != 3 || res.Sent != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Failed) != 1 || res.Failed[0].Recipient != 2 || res.Failed[0].Reason == "" {
		t.Fatalf("failed = %+v", res.Failed)
	}
	if len(r.sent) != 2 || r.sent[0] != 1 || r.sent[1] != 3 {
		t.Fatalf("delivery order = %v", r.sent)
	}
	if res.ID == uuid.Nil {
		t.Fatal("broadcast id not assigned")
	}
}

func TestBroadcastEmptyAudience(t *testing.T) {
	r := &recorder{}
	res := Broadcast(context.Background(), r, "resolved", nil, "hi")
	if res.Recipients != 0 || res.Sent != 0 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestExclude(t *testing.T) {
	got := Exclude([]int64{1, 2, 3, 2}, 2)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("Exclude = %v", got)
	}
	if got := Exclude([]int64{1, 3}, 9); len(got) != 2 {
		t.Fatalf("Exclude absent = %v", got)
	}
}
