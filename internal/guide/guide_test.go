package guide

import (
	"errors"
	"testing"
)

func TestWalkToEveryResult(t *testing.T) {
	cases := []struct {
		answers []string
		want    string
	}{
		{[]string{"Define mandatory high-level requirements", "Entire Organization"}, "Policy"},
		{[]string{"1", "2"}, "Standard"},
		{[]string{"provide step-by-step instructions", "routine operations"}, "SOP"},
		{[]string{"2", "Incident Response", "Strategic Coordination"}, "Playbook"},
		{[]string{"2", "2", "2"}, "Runbook"},
		{[]string{"3"}, "Guideline"},
	}
	for _, tc := range cases {
		steps, pending, result, err := Walk(Default, tc.answers)
		if err != nil {
			t.Fatalf("Walk(%v): %v", tc.answers, err)
		}
		if pending != nil {
			t.Fatalf("Walk(%v) left question %q pending", tc.answers, pending.Question)
		}
		if result == nil || result.Type != tc.want {
			t.Fatalf("Walk(%v) = %v, want %s", tc.answers, result, tc.want)
		}
		if len(steps) != len(tc.answers) {
			t.Fatalf("steps = %d, want %d", len(steps), len(tc.answers))
		}
	}
}

func TestWalkPartial(t *testing.T) {
	steps, pending, result, err := Walk(Default, []string{"2"})
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Fatalf("unexpected result %v", result)
	}
	if pending == nil || pending.Question != "Is this for routine operations or for responding to an active incident?" {
		t.Fatalf("pending = %#v", pending)
	}
	if got, want := steps[0].Answer, "Provide step-by-step instructions"; got != want {
		t.Fatalf("answer = %q, want %q", got, want)
	}

	_, pending, _, err = Walk(Default, nil)
	if err != nil || pending != Default {
		t.Fatalf("empty walk should stop at the root: %v", err)
	}
}

func TestWalkErrors(t *testing.T) {
	if _, _, _, err := Walk(Default, []string{"Something else"}); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
	if _, _, _, err := Walk(Default, []string{"9"}); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption for out of range index, got %v", err)
	}
	if _, _, _, err := Walk(Default, []string{"3", "1"}); err == nil {
		t.Fatalf("expected error for answer after result")
	}
}

func TestResults(t *testing.T) {
	var types []string
	for _, r := range Results(Default) {
		types = append(types, r.Type)
	}
	want := []string{"Policy", "Standard", "SOP", "Playbook", "Runbook", "Guideline"}
	if len(types) != len(want) {
		t.Fatalf("results = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("results = %v, want %v", types, want)
		}
	}
}
