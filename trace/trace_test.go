package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf, 42)

	require.NoError(t, rec.RecordNamed("task#1.1", string(KindSpawn), map[string]any{"region": "root"}))
	require.NoError(t, rec.RecordNamed("task#1.1", string(KindSettle), map[string]any{"outcome": "ok"}))
	require.NoError(t, rec.Flush())

	header, events, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, header.SchemaVersion)
	assert.Equal(t, rec.RunID(), header.RunID)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
	assert.Equal(t, KindSpawn, events[0].Kind)
}

func TestReadSkipsCorruptTail(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf, 1)
	require.NoError(t, rec.RecordNamed("t1", string(KindSpawn), nil))
	require.NoError(t, rec.Flush())
	buf.WriteString(`{"seq":2,"kind":`) // truncated line

	_, events, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestCompareFindsFirstDivergence(t *testing.T) {
	a := []Event{{Seq: 1, Kind: KindSpawn, TaskID: "t1"}, {Seq: 2, Kind: KindSettle, TaskID: "t1"}}
	b := []Event{{Seq: 1, Kind: KindSpawn, TaskID: "t1"}, {Seq: 2, Kind: KindSettle, TaskID: "t2"}}

	d := Compare(a, b)
	require.NotNil(t, d)
	assert.Equal(t, 1, d.Index)
	assert.Equal(t, "t1", d.Want.TaskID)
	assert.Equal(t, "t2", d.Got.TaskID)
}

func TestCompareIgnoresSeq(t *testing.T) {
	a := []Event{{Seq: 1, Kind: KindSpawn, TaskID: "t1"}}
	b := []Event{{Seq: 99, Kind: KindSpawn, TaskID: "t1"}}
	assert.Nil(t, Compare(a, b))
}

func TestFirewallCatchesCancelAckWithoutRequest(t *testing.T) {
	events := []Event{
		{Kind: KindCancelAck, TaskID: "t1"},
	}
	violations := Check(events)
	require.Len(t, violations, 1)
	assert.Equal(t, ruleCancelAckWithoutRequest, violations[0].Rule)
}

func TestFirewallPassesCleanCancelSequence(t *testing.T) {
	events := []Event{
		{Kind: KindCancelRequest, TaskID: "t1"},
		{Kind: KindCancelAck, TaskID: "t1"},
	}
	assert.Empty(t, Check(events))
}

func TestFirewallCatchesResolveWithoutReserve(t *testing.T) {
	events := []Event{
		{Kind: KindObligationEnd, TaskID: "t1", Fields: map[string]any{"obligation_id": "o1"}},
	}
	violations := Check(events)
	require.Len(t, violations, 1)
	assert.Equal(t, ruleCommitBeforeReserve, violations[0].Rule)
}
