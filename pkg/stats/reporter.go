package stats

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ringblk/pkg/rbb"
	"github.com/robotalks/ringblk/pkg/sink"
)

// DefaultInterval is the report interval if not specified.
const DefaultInterval = 5 * time.Second

// Reporter periodically writes encoded snapshots.
type Reporter struct {
	Buffer   *rbb.Buffer
	Writer   sink.PacketWriter
	Interval time.Duration
	Source   string
	// Dropped provides the number of frames dropped by the producer.
	Dropped func() uint64
}

// Report writes one snapshot.
func (r *Reporter) Report(now time.Time) error {
	var dropped uint64
	if r.Dropped != nil {
		dropped = r.Dropped()
	}
	data, err := FromBuffer(r.Buffer, r.Source, dropped, now).Encode()
	if err != nil {
		return err
	}
	return r.Writer.WritePacket(data)
}

// Run implements Runnable. Failed reports are logged and skipped.
func (r *Reporter) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := r.Report(now); err != nil {
				glog.Warningf("stats report: %v", err)
			}
		}
	}
}
