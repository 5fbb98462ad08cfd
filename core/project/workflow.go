package project

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

// Action is a project level transition.
type Action string

const (
	ActionCreate  Action = "create" // history only
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionOpen    Action = "open"
	ActionReject  Action = "reject"
)

type actor int

const (
	byOwner actor = iota + 1
	byAdmin
)

type transition struct {
	from []Status
	to   Status
	by   actor
}

// transitions is the project lifecycle. Anything missing from it is rejected.
var transitions = map[Action]transition{
	ActionSubmit:  {from: []Status{StatusDraft, StatusRejected}, to: StatusSubmitted, by: byOwner},
	ActionApprove: {from: []Status{StatusSubmitted}, to: StatusApproved, by: byAdmin},
	ActionOpen:    {from: []Status{StatusDraft}, to: StatusApproved, by: byAdmin},
	ActionReject:  {from: []Status{StatusSubmitted}, to: StatusRejected, by: byAdmin},
}

func (t transition) allows(from Status) bool {
	for _, s := range t.from {
		if s == from {
			return true
		}
	}
	return false
}

func (t transition) permits(usr user.User, p Project) bool {
	switch t.by {
	case byAdmin:
		return usr.IsAdmin()
	case byOwner:
		return usr.IsAdmin() || usr.ID == p.CreatedBy
	}
	return false
}

// Next returns the status p reaches when usr applies a.
func Next(usr user.User, p Project, a Action) (Status, error) {
	t, ok := transitions[a]
	if !ok {
		return "", core.NewFieldError("action", fmt.Sprintf("unknown action %q", a))
	}
	if !t.permits(usr, p) {
		return "", core.ErrForbidden
	}
	if !t.allows(p.Status) {
		if p.Status == StatusApproved && a == ActionApprove {
			return "", core.NewConflictError(errors.New("the project is already approved"))
		}
		return "", core.NewConflictError(errors.Errorf("cannot %s a project that is %s", a, p.Status))
	}
	return t.to, nil
}

// ParticipantAction is an admin decision on participants of an approved project.
type ParticipantAction string

const (
	ParticipantApprove   ParticipantAction = "approve"
	ParticipantReject    ParticipantAction = "reject"
	ParticipantRevert    ParticipantAction = "revert"
	ParticipantReapprove ParticipantAction = "reapprove"
)

// participantTransitions maps action -> from -> to.
var participantTransitions = map[ParticipantAction]map[ParticipantStatus]ParticipantStatus{
	ParticipantApprove: {
		ParticipantPending:  ParticipantApproved,
		ParticipantRejected: ParticipantApproved,
		ParticipantApproved: ParticipantApproved,
	},
	ParticipantReject: {
		ParticipantPending:  ParticipantRejected,
		ParticipantApproved: ParticipantRejected,
		ParticipantRejected: ParticipantRejected,
	},
	ParticipantRevert:    {ParticipantApproved: ParticipantPending},
	ParticipantReapprove: {ParticipantRejected: ParticipantApproved},
}

func NextParticipant(from ParticipantStatus, a ParticipantAction) (ParticipantStatus, error) {
	tos, ok := participantTransitions[a]
	if !ok {
		return "", core.NewFieldError("action", fmt.Sprintf("unknown action %q", a))
	}
	to, ok := tos[from]
	if !ok {
		return "", core.NewConflictError(errors.Errorf("cannot %s a participant who is %s", a, from))
	}
	return to, nil
}

// Capability is something the current user may do on a project.
type Capability string

const (
	CanUpdate             Capability = "update"
	CanDelete             Capability = "delete"
	CanSubmit             Capability = "submit"
	CanApprove            Capability = "approve"
	CanOpen               Capability = "open"
	CanReject             Capability = "reject"
	CanManageParticipants Capability = "manage_participants"
	CanUploadFiles        Capability = "upload_files"
	CanReviewParticipants Capability = "review_participants"
)

func isOwner(usr user.User, p Project) bool {
	return usr.ID == p.CreatedBy
}

func editable(usr user.User, p Project) bool {
	if usr.IsAdmin() {
		return p.Status != StatusApproved
	}
	return isOwner(usr, p) && (p.Status == StatusDraft || p.Status == StatusRejected)
}

func uploadable(usr user.User, p Project) bool {
	return (usr.IsAdmin() || isOwner(usr, p)) && p.Status != StatusApproved
}

func manageable(usr user.User, p Project) bool {
	return usr.IsAdmin() || isOwner(usr, p)
}

// AllowedActions lists what usr can do on p, in a stable order.
func AllowedActions(usr user.User, p Project) []Capability {
	caps := make([]Capability, 0, 8)
	if editable(usr, p) {
		caps = append(caps, CanUpdate, CanDelete)
	}
	for _, a := range []Action{ActionSubmit, ActionApprove, ActionOpen, ActionReject} {
		if _, err := Next(usr, p, a); err == nil {
			caps = append(caps, Capability(a))
		}
	}
	if manageable(usr, p) {
		caps = append(caps, CanManageParticipants)
	}
	if uploadable(usr, p) {
		caps = append(caps, CanUploadFiles)
	}
	if usr.IsAdmin() && p.Status == StatusApproved {
		caps = append(caps, CanReviewParticipants)
	}
	return caps
}
