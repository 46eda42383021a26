// Package fixes resolves violations by mutating the CAD host and proving
// the mutation worked.
//
// Every fix attempt walks one state machine:
//
//	PENDING → MUTATING → VALIDATING → CONFIRMED
//	                                → ROLLED_BACK   (validation failed, undo issued)
//	                                → FAILED        (nothing was mutated, no undo needed)
//
// There is exactly one validate/rollback cycle per attempt — no automatic
// re-attempt after rollback; that decision belongs to the caller.
package fixes

// State is a fix attempt's terminal state.
type State string

const (
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolled_back"
	StateFailed     State = "failed_no_rollback"
)

// Result is the outcome of one fix attempt.
//
// Invariant: RolledBack implies !Success.
type Result struct {
	Success    bool    `json:"success"`
	RuleID     string  `json:"rule_id"`
	FeatureID  string  `json:"feature_id"`
	Message    string  `json:"message"`
	OldValue   float64 `json:"old_value"`
	NewValue   float64 `json:"new_value"`
	RolledBack bool    `json:"rolled_back"`
	State      State   `json:"state"`
}

func confirmed(ruleID, featureID, msg string, oldVal, newVal float64) Result {
	return Result{
		Success: true, RuleID: ruleID, FeatureID: featureID,
		Message: msg, OldValue: oldVal, NewValue: newVal,
		State: StateConfirmed,
	}
}

func rolledBack(ruleID, featureID, msg string, oldVal, newVal float64) Result {
	return Result{
		Success: false, RuleID: ruleID, FeatureID: featureID,
		Message: msg, OldValue: oldVal, NewValue: newVal,
		RolledBack: true, State: StateRolledBack,
	}
}

func failed(ruleID, featureID, msg string, oldVal, newVal float64) Result {
	return Result{
		Success: false, RuleID: ruleID, FeatureID: featureID,
		Message: msg, OldValue: oldVal, NewValue: newVal,
		State: StateFailed,
	}
}
