package fsm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/looplab/fsm"
)

func TestIgnoreNoTransition(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no transition", fsm.NoTransitionError{}, nil},
		{"wrapped no transition", fmt.Errorf("pause: %w", fsm.NoTransitionError{}), nil},
		{"other", boom, boom},
	}

	for _, tt := range tests {
		if got := IgnoreNoTransition(tt.in); !errors.Is(got, tt.want) && got != tt.want {
			t.Errorf("%s: IgnoreNoTransition() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWrapEvent(t *testing.T) {
	boom := errors.New("side effect failed")
	m := fsm.NewFSM("IDLE",
		fsm.Events{{Name: "start", Src: []string{"IDLE"}, Dst: "RUNNING"}},
		fsm.Callbacks{
			"after_start": WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				return boom
			}),
		},
	)

	if err := m.Event(context.Background(), "start"); !errors.Is(err, boom) {
		t.Fatalf("Event() = %v, want %v", err, boom)
	}
	if m.Current() != "RUNNING" {
		t.Errorf("state = %s, want RUNNING", m.Current())
	}
}
