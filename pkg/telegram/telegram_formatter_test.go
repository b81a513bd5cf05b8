package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remoteiot-pipeline/internal/entity"
)

func TestFormatPipelineRunCompleted(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	run := entity.PipelineRun{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(7 * time.Minute),
		Completed:  true,
		Stages: []entity.StageResult{
			{Stage: "fetch-devices", State: "completed", Proceed: true, Detail: "12 online devices tracked"},
			{Stage: "dispatch-jobs", State: "completed", Proceed: true, Warnings: 1},
			{Stage: "collect-results", State: "completed", Proceed: true},
		},
	}

	msgs := FormatPipelineRun(run)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "pipeline completed")
	assert.Contains(t, msgs[0], "01 Mar 2025 08:00:00 (7m0s)")
	assert.Contains(t, msgs[0], "✅ *fetch-devices*")
	assert.Contains(t, msgs[0], "⚠️ *dispatch-jobs*")
	assert.NotContains(t, msgs[0], "Halted at")
}

func TestFormatPipelineRunHalted(t *testing.T) {
	run := entity.PipelineRun{
		ID:       "run-2",
		HaltedAt: "fetch-devices",
		Stages: []entity.StageResult{
			{Stage: "fetch-devices", State: "aborted", ExitCode: 1, Detail: "login_failed: password_empty"},
		},
	}

	msgs := FormatPipelineRun(run)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "pipeline halted")
	assert.Contains(t, msgs[0], "Halted at: *fetch-devices*")
	assert.Contains(t, msgs[0], "❌ *fetch-devices*: aborted (exit 1")
	assert.Contains(t, msgs[0], `login\_failed: password\_empty`)
}

func TestFormatPipelineRunSplitsLongSummaries(t *testing.T) {
	run := entity.PipelineRun{ID: "run-3"}
	for i := 0; i < 40; i++ {
		run.Stages = append(run.Stages, entity.StageResult{Stage: "collect-results", State: "completed", Proceed: true, Detail: strings.Repeat("x", 200)})
	}

	msgs := FormatPipelineRun(run)
	require.Greater(t, len(msgs), 1)
	for _, m := range msgs {
		assert.LessOrEqual(t, len(m), maxMessageLen)
	}
	assert.True(t, strings.HasPrefix(msgs[1], "---*Part 2*---"))
}

type recordingNotifier struct {
	sent   []string
	failAt int
}

func (n *recordingNotifier) SendMessage(text string) error {
	n.sent = append(n.sent, text)
	if len(n.sent) == n.failAt {
		return errors.New("chat not found")
	}
	return nil
}

func TestSendAllStopsAtFirstFailure(t *testing.T) {
	n := &recordingNotifier{failAt: 2}
	err := SendAll(n, []string{"a", "b", "c"})
	assert.ErrorContains(t, err, "part 2/3")
	assert.Equal(t, []string{"a", "b"}, n.sent)
}

func TestFormatErrorAlertMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	msg := FormatErrorAlertMessage(at, "schedule", "stage_binary missing")
	assert.Contains(t, msg, "01 Mar 2025 08:00:00")
	assert.Contains(t, msg, `stage\_binary missing`)
}
