package dispatch

const (
	largeFleetThreshold = 100
	largeBatchSize      = 10
	smallBatchSize      = 5
)

// BatchSize is 10 when the configured device count is at least 100, else 5.
func BatchSize(deviceCount int) int {
	if deviceCount >= largeFleetThreshold {
		return largeBatchSize
	}
	return smallBatchSize
}

// Partition splits devices into consecutive batches of size, keeping order.
// Every device lands in exactly one batch; only the last may be short.
func Partition(devices []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	batches := make([][]string, 0, (len(devices)+size-1)/size)
	for start := 0; start < len(devices); start += size {
		end := start + size
		if end > len(devices) {
			end = len(devices)
		}
		batches = append(batches, devices[start:end:end])
	}
	return batches
}
