package trace

import "fmt"

// Violation is one firewall rule failing against a recorded trace.
type Violation struct {
	Rule   string
	Index  int
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at event #%d: %s", v.Rule, v.Index, v.Detail)
}

// rule numbers are taken directly from original_source/tests/refinement_firewall.rs,
// preserved so a report produced here is cross-referenceable against that
// original's own diagnostics.
const (
	ruleCancelAckWithoutRequest = "RFW-CANCEL-006"
	ruleCommitBeforeReserve     = "RFW-OBLIGATION-002"
	ruleCloseWhileLive          = "RFW-REGION-004"
)

// Check validates events against the fixed set of causality rules a
// well-formed trace must never violate, returning every violation found, in
// event order. An empty result means the trace passed the firewall.
func Check(events []Event) []Violation {
	var violations []Violation

	requested := map[string]bool{}
	reserved := map[string]bool{}
	liveAtClose := map[string]int{} // region id -> live count observed at its close event

	for i, e := range events {
		if n, ok := e.Fields["live_count"].(float64); ok && e.Kind == KindRegionClose {
			liveAtClose[e.RegionID] = int(n)
		}
		switch e.Kind {
		case KindCancelRequest:
			requested[e.TaskID] = true
		case KindCancelAck:
			if !requested[e.TaskID] {
				violations = append(violations, Violation{
					Rule:   ruleCancelAckWithoutRequest,
					Index:  i,
					Detail: fmt.Sprintf("task %s acknowledged cancellation with no prior cancel_request", e.TaskID),
				})
			}
		case KindObligationOpen:
			reserved[obligationKey(e)] = true
		case KindObligationEnd:
			key := obligationKey(e)
			if !reserved[key] {
				violations = append(violations, Violation{
					Rule:   ruleCommitBeforeReserve,
					Index:  i,
					Detail: fmt.Sprintf("obligation %s resolved without a prior reserve", key),
				})
			} else {
				delete(reserved, key)
			}
		case KindRegionClose:
			if live, ok := liveAtClose[e.RegionID]; ok && live > 0 {
				violations = append(violations, Violation{
					Rule:   ruleCloseWhileLive,
					Index:  i,
					Detail: fmt.Sprintf("region %s closed with %d live descendants still recorded", e.RegionID, live),
				})
			}
		}
	}
	return violations
}

func obligationKey(e Event) string {
	if id, ok := e.Fields["obligation_id"].(string); ok {
		return e.TaskID + "/" + id
	}
	return e.TaskID
}
