package appointment

import (
	"errors"
	"strings"
	"testing"
)

var allStatuses = []Status{
	StatusEspera, StatusConfirmada, StatusEnProgreso,
	StatusFinalizada, StatusCancelada, StatusNoAsistio,
}

var allActions = []Action{
	ActionConfirm, ActionStart, ActionFinish, ActionCancel, ActionNoShow,
}

// The full lifecycle as the tests expect it. Every (status, action) pair not
// listed here must fail.
var allowed = map[Status]map[Action]Status{
	StatusEspera: {
		ActionConfirm: StatusConfirmada,
		ActionCancel:  StatusCancelada,
	},
	StatusConfirmada: {
		ActionStart:  StatusEnProgreso,
		ActionCancel: StatusCancelada,
		ActionNoShow: StatusNoAsistio,
	},
	StatusEnProgreso: {
		ActionFinish: StatusFinalizada,
	},
}

func TestNextExhaustive(t *testing.T) {
	for _, from := range allStatuses {
		for _, action := range allActions {
			want, ok := allowed[from][action]

			got, err := Next(from, action)
			if ok {
				if err != nil {
					t.Errorf("Next(%s, %s) unexpected error: %v", from, action, err)
					continue
				}
				if got != want {
					t.Errorf("Next(%s, %s) = %s, want %s", from, action, got, want)
				}
				continue
			}

			if err == nil {
				t.Errorf("Next(%s, %s) = %s, want InvalidTransitionError", from, action, got)
				continue
			}
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Errorf("Next(%s, %s) error type %T, want *InvalidTransitionError", from, action, err)
				continue
			}
			if invalid.Status != from || invalid.Action != action {
				t.Errorf("error carries (%s, %s), want (%s, %s)", invalid.Status, invalid.Action, from, action)
			}
			if !strings.Contains(invalid.Error(), string(from)) {
				t.Errorf("error %q does not name the current state %s", invalid.Error(), from)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusFinalizada: true,
		StatusCancelada:  true,
		StatusNoAsistio:  true,
	}

	for _, s := range allStatuses {
		if got := IsTerminal(s); got != terminal[s] {
			t.Errorf("IsTerminal(%s) = %t, want %t", s, got, terminal[s])
		}
	}
}
