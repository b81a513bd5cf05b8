package common

const (
	StageFetchDevices   = "fetch-devices"
	StageDispatchJobs   = "dispatch-jobs"
	StageCollectResults = "collect-results"

	MarkerFetchDevices   = "1st_script_completed"
	MarkerDispatchJobs   = "2nd_script_completed"
	MarkerCollectResults = "3rd_script_completed"

	// EnvRunID carries the orchestrator's run id into stage processes.
	EnvRunID = "PIPELINE_RUN_ID"
)

// Spreadsheet columns shared with the portal exports.
const (
	ColumnDeviceName      = "Device Name"
	ColumnStatus          = "Status"
	ColumnResult          = "Result"
	ColumnJobName         = "Job Name"
	ColumnCommandStatus   = "Command Status"
	ColumnExecutedDevices = "Executed Devices"
)

const (
	TrackingFileName = "Tracking_online_Devices.xlsx"

	DefaultJobMarker       = "IotSecurity"
	DefaultExpectedVersion = "1.0.0"
)

// Markers maps each stage name to its completion marker.
var Markers = map[string]string{
	StageFetchDevices:   MarkerFetchDevices,
	StageDispatchJobs:   MarkerDispatchJobs,
	StageCollectResults: MarkerCollectResults,
}

// StageOrder is the fixed order in which the pipeline runs its stages.
var StageOrder = []string{StageFetchDevices, StageDispatchJobs, StageCollectResults}
