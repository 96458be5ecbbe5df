package emergency

import (
	"context"

	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

// allowedTargets maps each non-admin role to the states it may request.
// Membership is the only rule: moves backwards within the set are allowed.
var allowedTargets = map[auth.Role]map[State]bool{
	auth.RoleParamedic: {
		StateEnRoute:    true,
		StateOnScene:    true,
		StateInTransit:  true,
		StateAtHospital: true,
	},
	auth.RolePhysician: {
		StateAtHospital: true,
		StateInCare:     true,
		StateStabilized: true,
		StateDischarged: true,
		StateClosed:     true,
	},
}

// CanRequest reports whether role may move an emergency to target.
func CanRequest(role auth.Role, target State) bool {
	if role == auth.RoleAdmin {
		return true
	}
	return allowedTargets[role][target]
}

// Decision is the outcome of an accepted transition request.
type Decision struct {
	From    State
	To      State
	Changed bool
	// AssignAttending is set when a physician moves an unattended
	// emergency into care.
	AssignAttending bool
}

// Decide validates a requested state against the acting role. It performs
// no writes. Requesting the current state is accepted with Changed false.
func Decide(current State, requested string, role auth.Role, attended bool) (Decision, error) {
	target, ok := ParseState(requested)
	if !ok {
		return Decision{}, &apierr.InvalidStateError{Value: requested}
	}
	if !CanRequest(role, target) {
		return Decision{}, &apierr.ForbiddenTransitionError{Role: role.String(), Target: string(target)}
	}
	d := Decision{From: current, To: target, Changed: target != current}
	d.AssignAttending = d.Changed && target == StateInCare && !attended && role == auth.RolePhysician
	return d, nil
}

// TransitionStore persists accepted transitions.
type TransitionStore interface {
	AppendTransition(ctx context.Context, t *Transition) error
	Update(ctx context.Context, id int64, p Patch) error
}

type StateMachine struct {
	store TransitionStore
}

func NewStateMachine(store TransitionStore) *StateMachine {
	return &StateMachine{store: store}
}

// Apply records d against em: one history row plus the state update, and
// the attending physician when d asks for it. Unchanged decisions write
// nothing. Callers run Apply inside the transaction of the whole update.
func (m *StateMachine) Apply(ctx context.Context, em *Emergency, d Decision, actorID int64, notes *string) error {
	if !d.Changed {
		return nil
	}
	from := d.From
	if err := m.store.AppendTransition(ctx, &Transition{
		EmergencyID: em.ID,
		From:        &from,
		To:          d.To,
		UserID:      actorID,
		Notes:       notes,
	}); err != nil {
		return err
	}

	to := d.To
	patch := Patch{State: &to}
	if d.AssignAttending {
		patch.AttendedBy = &actorID
	}
	if err := m.store.Update(ctx, em.ID, patch); err != nil {
		return err
	}

	em.State = d.To
	if d.AssignAttending {
		em.AttendedBy = &actorID
	}
	return nil
}
