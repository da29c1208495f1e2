package metrics

import (
	"sync/atomic"
	"time"
)

// serverStats mirrors a few of the Prometheus series in plain counters so
// the health endpoint can report them without scraping.
type serverStats struct {
	activeStreams atomic.Int64
	bytesStreamed atomic.Int64
	streamsServed atomic.Int64
	startTime     time.Time
}

var stats = &serverStats{startTime: time.Now()}

// StreamStarted marks the start of a range response.
func StreamStarted() {
	stats.activeStreams.Add(1)
	ActiveStreams.Inc()
}

// StreamFinished marks the end of a range response that wrote n bytes.
func StreamFinished(n int64) {
	stats.activeStreams.Add(-1)
	stats.streamsServed.Add(1)
	stats.bytesStreamed.Add(n)
	ActiveStreams.Dec()
	StreamBytes.Add(float64(n))
}

type Snapshot struct {
	Uptime        time.Duration
	ActiveStreams int64
	StreamsServed int64
	BytesStreamed int64
}

func GetSnapshot() Snapshot {
	return Snapshot{
		Uptime:        time.Since(stats.startTime),
		ActiveStreams: stats.activeStreams.Load(),
		StreamsServed: stats.streamsServed.Load(),
		BytesStreamed: stats.bytesStreamed.Load(),
	}
}

// ResetStats zeroes the counters and restarts the uptime clock.
func ResetStats() {
	stats.activeStreams.Store(0)
	stats.streamsServed.Store(0)
	stats.bytesStreamed.Store(0)
	stats.startTime = time.Now()
}
