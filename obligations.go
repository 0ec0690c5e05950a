package asupersync

import (
	"github.com/Dicklesworthstone/asupersync/obligation"
	"github.com/Dicklesworthstone/asupersync/trace"
)

// obligationRegistrar is the capability a Cx uses to reserve and resolve
// obligations without reaching around into the runtime driver directly —
// the same narrow-seam discipline Cx already applies to cancellation and
// budget. *Driver implements it against its shared obligation.Ledger;
// ForTesting installs a standalone in-memory implementation so task bodies
// can be unit tested without a full runtime.
type obligationRegistrar interface {
	reserveObligation(owner TaskID, label string) (ObligationID, error)
	commitObligation(id ObligationID) error
	abortObligation(id ObligationID) error
}

// reserveObligation admits one unit of obligation capacity against owner's
// region (ErrAdmissionRejected if the region's MaxObligations bound would be
// exceeded), mints an ObligationID, and opens it in the ledger under owner.
func (d *Driver) reserveObligation(owner TaskID, label string) (ObligationID, error) {
	d.mu.Lock()

	ownerRec, ok := d.tasks.get(owner.s)
	if !ok {
		d.mu.Unlock()
		return ObligationID{}, ErrGenerationMismatch
	}
	if regionRec, ok := d.regions.get(ownerRec.region.s); ok {
		if err := regionRec.admitObligation(); err != nil {
			d.mu.Unlock()
			return ObligationID{}, err
		}
	}

	s := d.obligationIDs.insert(struct{}{})
	id := ObligationID{s: s}
	d.ledger.Reserve(id, owner, label)
	ownerRec.addObligation(id)
	region := ownerRec.region
	if set, ok := d.regionObligations[region]; ok {
		set[id] = struct{}{}
	}
	d.mu.Unlock()

	d.recordEvent(owner, region, trace.KindObligationOpen, map[string]any{
		"obligation_id": id.String(),
		"label":         label,
	})
	return id, nil
}

// commitObligation and abortObligation both resolve id in the ledger, then
// give back the owning region's obligation-count capacity and deregister id
// from its owning task. Both share resolveObligation; callers must hold no
// lock (it takes d.mu itself).
func (d *Driver) commitObligation(id ObligationID) error {
	return d.resolveObligation(id, d.ledger.Commit)
}

func (d *Driver) abortObligation(id ObligationID) error {
	return d.resolveObligation(id, d.ledger.Abort)
}

func (d *Driver) resolveObligation(id ObligationID, resolve func(ObligationID) error) error {
	d.mu.Lock()

	owner, ok := d.ledger.Owner(id)
	if !ok {
		d.mu.Unlock()
		return ErrUnknownObligation
	}
	if err := resolve(id); err != nil {
		d.mu.Unlock()
		return err
	}
	var region RegionID
	if ownerRec, ok := d.tasks.get(owner.s); ok {
		ownerRec.removeObligation(id)
		region = ownerRec.region
		if regionRec, ok := d.regions.get(ownerRec.region.s); ok {
			regionRec.releaseObligation()
		}
	}
	d.obligationIDs.remove(id.s)
	d.mu.Unlock()

	d.recordEvent(owner, region, trace.KindObligationEnd, map[string]any{"obligation_id": id.String()})
	return nil
}

// standaloneObligations backs Cx.Reserve/Commit/Abort for a Cx built via
// ForTesting: a self-contained id arena plus ledger, with no region
// admission bounds to enforce (ForTesting has no region at all).
type standaloneObligations struct {
	ids    *arena[struct{}]
	ledger *obligation.Ledger[ObligationID, TaskID]
}

func newStandaloneObligations() *standaloneObligations {
	return &standaloneObligations{
		ids:    newArena[struct{}](),
		ledger: obligation.NewLedger[ObligationID, TaskID](),
	}
}

func (s *standaloneObligations) reserveObligation(owner TaskID, label string) (ObligationID, error) {
	slot := s.ids.insert(struct{}{})
	id := ObligationID{s: slot}
	s.ledger.Reserve(id, owner, label)
	return id, nil
}

func (s *standaloneObligations) commitObligation(id ObligationID) error {
	return s.ledger.Commit(id)
}

func (s *standaloneObligations) abortObligation(id ObligationID) error {
	return s.ledger.Abort(id)
}
