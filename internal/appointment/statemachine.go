package appointment

import "fmt"

// InvalidTransitionError names the state an appointment was in and the action
// that was not allowed from it.
type InvalidTransitionError struct {
	Status Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an appointment in state %s", e.Action, e.Status)
}

// transitions is the whole lifecycle as data. A missing (status, action) pair
// means the action is forbidden from that state; terminal states have no
// entries at all.
var transitions = map[Status]map[Action]Status{
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

// Next resolves the target state for an action, or an InvalidTransitionError
// naming the current state and the attempted action.
func Next(from Status, action Action) (Status, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", &InvalidTransitionError{Status: from, Action: action}
}

// IsTerminal reports whether no action can ever leave the given state.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}
