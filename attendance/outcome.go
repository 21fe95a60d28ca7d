package attendance

import "github.com/warp/attendance-engine/generic"

// Result classifies what a login or logout did.
type Result string

const (
	ResultAccepted  Result = "accepted"  // the record was written
	ResultUnchanged Result = "unchanged" // idempotent repeat, nothing written
	ResultDenied    Result = "denied"    // a policy refused the action
)

// Denial names the policy that refused a login or logout.
type Denial string

const (
	DenialNone             Denial = ""
	DenialHoliday          Denial = "holiday"
	DenialOnLeave          Denial = "on_leave"
	DenialWeekend          Denial = "weekend"
	DenialTooEarly         Denial = "too_early"
	DenialAlreadyLoggedOut Denial = "already_logged_out"
	DenialNotLoggedIn      Denial = "not_logged_in"
	DenialFinalized        Denial = "finalized"
)

// Outcome is the typed answer to Login and Logout. Policy refusals are
// outcomes, not errors.
type Outcome struct {
	Result  Result
	Denial  Denial
	Message string
	Record  *generic.Attendance
}

func (o Outcome) Accepted() bool { return o.Result == ResultAccepted }

func accepted(msg string, rec *generic.Attendance) Outcome {
	return Outcome{Result: ResultAccepted, Message: msg, Record: rec}
}

func unchanged(msg string, rec *generic.Attendance) Outcome {
	return Outcome{Result: ResultUnchanged, Message: msg, Record: rec}
}

func denied(d Denial, msg string, rec *generic.Attendance) Outcome {
	return Outcome{Result: ResultDenied, Denial: d, Message: msg, Record: rec}
}
