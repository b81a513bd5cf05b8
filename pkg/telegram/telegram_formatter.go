package telegram

import (
	"fmt"
	"strings"
	"time"

	"remoteiot-pipeline/internal/entity"
)

const maxMessageLen = 4090

const dateLayout = "02 Jan 2006 15:04:05"

// FormatPipelineRun renders a run summary as one or more Markdown messages,
// none longer than Telegram's limit.
func FormatPipelineRun(run entity.PipelineRun) []string {
	var header strings.Builder
	if run.Completed {
		header.WriteString("✅ *RemoteIoT pipeline completed*\n")
	} else {
		header.WriteString("🛑 *RemoteIoT pipeline halted*\n")
	}
	header.WriteString(fmt.Sprintf("🆔 `%s`\n", run.ID))
	header.WriteString(fmt.Sprintf("🕒 %s (%s)\n", run.StartedAt.Format(dateLayout), run.FinishedAt.Sub(run.StartedAt).Round(time.Second)))
	if run.HaltedAt != "" {
		header.WriteString(fmt.Sprintf("⛔ Halted at: *%s*\n", run.HaltedAt))
	}
	header.WriteString("\n")

	entries := make([]string, 0, len(run.Stages))
	for _, s := range run.Stages {
		entries = append(entries, formatStage(s))
	}
	if len(entries) == 0 {
		entries = append(entries, "No stage was started.\n")
	}
	return split(header.String(), entries)
}

func formatStage(s entity.StageResult) string {
	icon := "❌"
	switch {
	case s.Proceed && s.Warnings > 0:
		icon = "⚠️"
	case s.Proceed:
		icon = "✅"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *%s*: %s (exit %d, %s)\n", icon, s.Stage, s.State, s.ExitCode, s.Duration.Round(time.Second)))
	if s.Warnings > 0 {
		b.WriteString(fmt.Sprintf("• warnings: %d\n", s.Warnings))
	}
	if s.Detail != "" {
		b.WriteString(fmt.Sprintf("• %s\n", escape(s.Detail)))
	}
	return b.String()
}

// FormatErrorAlertMessage renders a failure that prevented a run from producing a summary.
func FormatErrorAlertMessage(at time.Time, errType string, errMsg string) string {
	return fmt.Sprintf("📛 [ERROR ALERT]\n%s\n🔧 %s\n⚠️ %s\n", at.Format(dateLayout), errType, escape(errMsg))
}

// split packs entries into messages that each start with header, continuing
// with a part header once the limit would be exceeded.
func split(header string, entries []string) []string {
	var (
		messages []string
		current  strings.Builder
		part     = 1
	)
	current.WriteString(header)
	for _, e := range entries {
		if current.Len()+len(e) > maxMessageLen {
			messages = append(messages, current.String())
			part++
			current.Reset()
			current.WriteString(fmt.Sprintf("---*Part %d*---\n\n", part))
		}
		current.WriteString(e)
	}
	return append(messages, current.String())
}

// escape neutralises the legacy Markdown control characters in free text.
func escape(s string) string {
	return strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[").Replace(s)
}
