package asupersync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscardLoggerDoesNotPanic(t *testing.T) {
	lg := NewDiscardLogger()
	assert.NotPanics(t, func() {
		lg.ObligationLeak(TaskID{}, RegionID{}, 3)
		lg.RefinementViolation("RFW-CANCEL-006", "cancel ack without request")
		lg.SupervisionWarning("admission rejection storm", map[string]string{"region": "root"})
	})
}
