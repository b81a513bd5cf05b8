package collector

import (
	"fmt"

	"remoteiot-pipeline/internal/entity"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/sheet"
)

// Classify maps one job row to its command status.
func Classify(status, result, expected string) entity.CommandStatus {
	return entity.JobResult{Status: status, Result: result}.Classify(expected)
}

// ClassifyTable returns a copy of the jobs export with a Command Status column.
// A missing Status or Result column reads as empty, so its rows classify as Failed.
func ClassifyTable(jobs *sheet.Table, expected string) *sheet.Table {
	out := jobs.Filter(func(sheet.Row) bool { return true })
	out.SetColumn(common.ColumnCommandStatus, func(r sheet.Row) string {
		return string(Classify(r.Get(common.ColumnStatus), r.Get(common.ColumnResult), expected))
	})
	return out
}

// MissingColumns lists the classification inputs absent from the jobs export.
func MissingColumns(jobs *sheet.Table) []string {
	var missing []string
	for _, col := range []string{common.ColumnStatus, common.ColumnResult} {
		if !jobs.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// FilterByJobName keeps the rows whose Job Name contains marker.
func FilterByJobName(devices *sheet.Table, marker string) (*sheet.Table, error) {
	if !devices.HasColumn(common.ColumnJobName) {
		return nil, fmt.Errorf("%w: %q", sheet.ErrColumnNotFound, common.ColumnJobName)
	}
	return devices.Filter(func(r sheet.Row) bool {
		return entity.JobResult{JobName: r.Get(common.ColumnJobName)}.MatchesJob(marker)
	}), nil
}
