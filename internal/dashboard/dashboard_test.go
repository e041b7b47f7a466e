package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sui-tools/vanity-miner/internal/engine"
)

func TestUpdate_ProgressMsgUpdatesLastReport(t *testing.T) {
	progressCh := make(chan engine.ProgressReport)
	resultCh := make(chan Result)
	m := New(engine.ModePackagePublish, "00", progressCh, resultCh)

	updated, _ := m.Update(progressMsg(engine.ProgressReport{Attempts: 123, Hashrate: 4.5, LastNonce: 99}))
	model := updated.(Model)

	assert.Equal(t, uint64(123), model.lastReport.Attempts)
	assert.Contains(t, model.View(), "attempts: 123")
}

func TestUpdate_ResultMsgWithHitRendersObjectID(t *testing.T) {
	progressCh := make(chan engine.ProgressReport)
	resultCh := make(chan Result)
	m := New(engine.ModeSplitCoin, "ab", progressCh, resultCh)

	hit := &engine.MiningHit{Nonce: 7, ObjectIndex: 1}
	hit.ObjectID[0] = 0xAB

	updated, _ := m.Update(NewResult(hit, nil))
	model := updated.(Model)

	require.True(t, model.finished)
	view := model.View()
	assert.True(t, strings.Contains(view, "hit!"))
	assert.Contains(t, view, "ab000000")
}

func TestUpdate_ResultMsgWithNilHitRendersCancelled(t *testing.T) {
	progressCh := make(chan engine.ProgressReport)
	resultCh := make(chan Result)
	m := New(engine.ModeGenericCall, "ff", progressCh, resultCh)

	updated, _ := m.Update(progressMsg(engine.ProgressReport{LastNonce: 42}))
	updated, _ = updated.(Model).Update(NewResult(nil, nil))
	model := updated.(Model)

	assert.Contains(t, model.View(), "cancelled at nonce 42")
}

func TestUpdate_ResultMsgWithErrorRendersError(t *testing.T) {
	progressCh := make(chan engine.ProgressReport)
	resultCh := make(chan Result)
	m := New(engine.ModePackagePublish, "0", progressCh, resultCh)

	updated, _ := m.Update(NewResult(nil, assertError{}))
	model := updated.(Model)

	assert.Contains(t, model.View(), "error:")
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
