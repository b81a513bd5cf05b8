package entity

import "strings"

// JobStatusExecuted is the per-device job status reported once a command ran.
const JobStatusExecuted = "executed"

// CommandStatus is the classified outcome of a status-check command.
type CommandStatus string

const (
	CommandStatusSuccessful CommandStatus = "Successful"
	CommandStatusFailed     CommandStatus = "Failed"
)

// JobResult is one row of the portal's jobs export.
type JobResult struct {
	DeviceName string
	JobName    string
	Status     string
	Result     string
}

// Executed reports whether the portal ran the command on the device.
func (r JobResult) Executed() bool {
	return strings.EqualFold(r.Status, JobStatusExecuted)
}

// Classify compares the trimmed result against the expected version.
// Anything other than an executed job with an exact match is a failure.
func (r JobResult) Classify(expected string) CommandStatus {
	if !r.Executed() {
		return CommandStatusFailed
	}
	result := strings.TrimSpace(r.Result)
	if result == "" || result != expected {
		return CommandStatusFailed
	}
	return CommandStatusSuccessful
}

// MatchesJob reports whether the job name carries marker.
func (r JobResult) MatchesJob(marker string) bool {
	return marker != "" && strings.Contains(r.JobName, marker)
}
