// Package stats reports the state of ring block buffers.
package stats

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	pb "github.com/robotalks/ringblk/pkg/proto/rbb/v1"
	"github.com/robotalks/ringblk/pkg/rbb"
)

// Snapshot wraps the protobuf message.
type Snapshot struct {
	pb.Snapshot
}

// FromBuffer takes a snapshot of buf.
func FromBuffer(buf *rbb.Buffer, source string, dropped uint64, at time.Time) *Snapshot {
	s := buf.Stats()
	return &Snapshot{Snapshot: pb.Snapshot{
		Capacity:      int64(s.Capacity),
		BlockMax:      int64(s.BlockMax),
		Live:          int64(s.Live),
		Inited:        int64(s.Inited),
		Put:           int64(s.Put),
		Got:           int64(s.Got),
		UsedBytes:     int64(s.Used),
		AllocOk:       s.AllocOK,
		AllocNoBlock:  s.AllocNoBlock,
		AllocNoSpace:  s.AllocNoSpace,
		DroppedFrames: dropped,
		TimestampNs:   at.UnixNano(),
		Source:        source,
	}}
}

// Time gets the time the snapshot was taken.
func (s *Snapshot) Time() time.Time {
	return time.Unix(0, s.TimestampNs)
}

// Usage gets used bytes in percentage of capacity.
func (s *Snapshot) Usage() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.UsedBytes) * 100 / float64(s.Capacity)
}

// Summary formats a one line human readable summary.
func (s *Snapshot) Summary() string {
	return fmt.Sprintf("%s live=%d/%d (inited=%d put=%d got=%d) used=%d/%d(%.1f%%) alloc=%d no-block=%d no-space=%d dropped=%d",
		s.Source, s.Live, s.BlockMax, s.Inited, s.Put, s.Got,
		s.UsedBytes, s.Capacity, s.Usage(),
		s.AllocOk, s.AllocNoBlock, s.AllocNoSpace, s.DroppedFrames)
}

// Encode encodes the snapshot to bytes.
func (s *Snapshot) Encode() ([]byte, error) {
	return proto.Marshal(&s.Snapshot)
}

// Decode decodes bytes into a Snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := proto.Unmarshal(data, &s.Snapshot); err != nil {
		return nil, err
	}
	return &s, nil
}
