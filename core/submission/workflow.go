package submission

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// transitions is the submission review table: action -> from -> to.
var transitions = map[Action]map[Status]Status{
	ActionApprove: {StatusPending: StatusApproved},
	ActionReject:  {StatusPending: StatusRejected},
}

// Next returns the status reached by applying a on from.
func Next(from Status, a Action) (Status, error) {
	tos, ok := transitions[a]
	if !ok {
		return "", core.NewFieldError("action", fmt.Sprintf("unknown action %q", a))
	}
	to, ok := tos[from]
	if !ok {
		return "", core.NewConflictError(errors.Errorf("cannot %s a submission that is %s", a, from))
	}
	return to, nil
}
