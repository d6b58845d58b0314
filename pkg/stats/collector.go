package stats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/ringblk/pkg/rbb"
)

const namespace = "rbb"

// Collector exports buffer state as prometheus metrics.
type Collector struct {
	Buffer  *rbb.Buffer
	Dropped func() uint64

	capacity  *prometheus.Desc
	blocks    *prometheus.Desc
	blockMax  *prometheus.Desc
	usedBytes *prometheus.Desc
	allocs    *prometheus.Desc
	dropped   *prometheus.Desc
}

// NewCollector creates a Collector. labels are attached to all metrics.
func NewCollector(buf *rbb.Buffer, dropped func() uint64, labels prometheus.Labels) *Collector {
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, labels)
	}
	return &Collector{
		Buffer:    buf,
		Dropped:   dropped,
		capacity:  desc("capacity_bytes", "Size of the arena."),
		blocks:    desc("blocks", "Number of live blocks by status.", "status"),
		blockMax:  desc("block_max", "Size of the descriptor pool."),
		usedBytes: desc("used_bytes", "Bytes held by live blocks."),
		allocs:    desc("alloc_total", "Allocation attempts by result.", "result"),
		dropped:   desc("dropped_frames_total", "Frames dropped by the producer."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.blocks
	ch <- c.blockMax
	ch <- c.usedBytes
	ch <- c.allocs
	if c.Dropped != nil {
		ch <- c.dropped
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Buffer.Stats()
	gauge := func(desc *prometheus.Desc, val int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(val), labels...)
	}
	counter := func(desc *prometheus.Desc, val uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(val), labels...)
	}
	gauge(c.capacity, s.Capacity)
	gauge(c.blockMax, s.BlockMax)
	gauge(c.usedBytes, s.Used)
	gauge(c.blocks, s.Inited, rbb.StatusInited.String())
	gauge(c.blocks, s.Put, rbb.StatusPut.String())
	gauge(c.blocks, s.Got, rbb.StatusGot.String())
	counter(c.allocs, s.AllocOK, "ok")
	counter(c.allocs, s.AllocNoBlock, "no_block")
	counter(c.allocs, s.AllocNoSpace, "no_space")
	if c.Dropped != nil {
		counter(c.dropped, c.Dropped())
	}
}
