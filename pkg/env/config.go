// Package env provides the common configuration of ring block buffer tools.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/ringblk/pkg/rbb"
)

// Lock kinds.
const (
	LockSpin  = "spin"
	LockMutex = "mutex"
)

// Config provides common options of a pump.
type Config struct {
	// ID identifies the source in topics and stats.
	ID string `yaml:"id"`
	// Device is the serial device the L0 firmware is attached.
	Device string `yaml:"device"`

	BufferSize int    `yaml:"buffer_size"`
	BlockMax   int    `yaml:"block_max"`
	Lock       string `yaml:"lock"`
	// HeapLimit bounds arena and descriptors memory if positive.
	HeapLimit int `yaml:"heap_limit"`

	// SinkURL specifies where frames go, see sink.Open.
	SinkURL string `yaml:"sink"`
	// MaxBatch enables coalescing contiguous frames up to the size.
	MaxBatch    int      `yaml:"max_batch"`
	SyncTimeout Duration `yaml:"sync_timeout"`

	// StatsURL is the MQTT broker receiving stats snapshots.
	// e.g. mqtt://host:port/topic-prefix
	StatsURL      string   `yaml:"stats"`
	StatsInterval Duration `yaml:"stats_interval"`
	// MetricsAddr is the listen address serving /metrics.
	MetricsAddr string `yaml:"metrics"`

	// File is the YAML config file loaded by Resolve.
	File string `yaml:"-"`
}

// Duration wraps time.Duration for YAML unmarshalling from strings like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

var defaultConfig = Config{
	Device:        "/dev/ttyACM0",
	BufferSize:    4096,
	BlockMax:      64,
	Lock:          LockSpin,
	SinkURL:       "-",
	SyncTimeout:   Duration{100 * time.Millisecond},
	StatsInterval: Duration{5 * time.Second},
}

func init() {
	defaultConfig.ID = MachineID()
	if err := defaultConfig.applyEnv(os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"RBB_ID":      &c.ID,
		"RBB_DEVICE":  &c.Device,
		"RBB_LOCK":    &c.Lock,
		"RBB_SINK":    &c.SinkURL,
		"RBB_STATS":   &c.StatsURL,
		"RBB_METRICS": &c.MetricsAddr,
		"RBB_CONFIG":  &c.File,
	}
	for name, p := range strs {
		if val := getenv(name); val != "" {
			*p = val
		}
	}
	ints := map[string]*int{
		"RBB_BUFFER_SIZE": &c.BufferSize,
		"RBB_BLOCK_MAX":   &c.BlockMax,
		"RBB_HEAP_LIMIT":  &c.HeapLimit,
		"RBB_MAX_BATCH":   &c.MaxBatch,
	}
	for name, p := range ints {
		if val := getenv(name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s: %v", name, err)
			}
			*p = n
		}
	}
	durs := map[string]*Duration{
		"RBB_SYNC_TIMEOUT":   &c.SyncTimeout,
		"RBB_STATS_INTERVAL": &c.StatsInterval,
	}
	for name, p := range durs {
		if val := getenv(name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("invalid %s: %v", name, err)
			}
			p.Duration = d
		}
	}
	return nil
}

// bind registers flags on fs for the fields of c.
func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.File, "config", c.File, "YAML config file.")
	fs.StringVar(&c.ID, "id", c.ID, "Source ID.")
	fs.StringVar(&c.Device, "dev", c.Device, "Serial device.")
	fs.IntVar(&c.BufferSize, "buf-size", c.BufferSize, "Ring buffer arena size in bytes.")
	fs.IntVar(&c.BlockMax, "blk-max", c.BlockMax, "Max number of blocks.")
	fs.StringVar(&c.Lock, "lock", c.Lock, "Buffer lock: spin or mutex.")
	fs.IntVar(&c.HeapLimit, "heap-limit", c.HeapLimit, "Memory budget of the buffer, 0 is unlimited.")
	fs.StringVar(&c.SinkURL, "sink", c.SinkURL, "Sink URL: -, file://, tcp://, ws://, mqtt://.")
	fs.IntVar(&c.MaxBatch, "max-batch", c.MaxBatch, "Coalesce contiguous frames up to this size, 0 disables.")
	fs.DurationVar(&c.SyncTimeout.Duration, "sync-timeout", c.SyncTimeout.Duration, "L0 sync timeout.")
	fs.StringVar(&c.StatsURL, "stats", c.StatsURL, "MQTT broker URL for stats reports.")
	fs.DurationVar(&c.StatsInterval.Duration, "stats-interval", c.StatsInterval.Duration, "Stats report interval.")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Listen address of the metrics endpoint.")
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.bind(flag.CommandLine)
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile decodes a YAML file on top of current values.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%s: %v", fn, err)
	}
	return nil
}

// Resolve loads the config file if specified, the flags explicitly set on
// fs take precedence over the file.
func (c *Config) Resolve(fs *flag.FlagSet) error {
	if c.File != "" {
		conf := *c
		if err := conf.LoadFile(c.File); err != nil {
			return err
		}
		replay := flag.NewFlagSet("", flag.ContinueOnError)
		conf.bind(replay)
		var err error
		fs.Visit(func(f *flag.Flag) {
			if e := replay.Set(f.Name, f.Value.String()); e != nil && err == nil {
				err = e
			}
		})
		if err != nil {
			return err
		}
		*c = conf
	}
	return c.Validate()
}

// Validate checks the values.
func (c *Config) Validate() error {
	if c.BufferSize < 1 {
		return fmt.Errorf("invalid buffer size %d", c.BufferSize)
	}
	if c.BlockMax < 1 {
		return fmt.Errorf("invalid block max %d", c.BlockMax)
	}
	if c.MaxBatch < 0 {
		return fmt.Errorf("invalid max batch %d", c.MaxBatch)
	}
	if c.Lock != LockSpin && c.Lock != LockMutex {
		return fmt.Errorf("unknown lock %q", c.Lock)
	}
	return nil
}

// NewBuffer creates the ring block buffer using current config.
func (c *Config) NewBuffer() (*rbb.Owned, error) {
	var opts []rbb.Option
	if c.Lock == LockMutex {
		opts = append(opts, rbb.WithLock(&rbb.MutexLock{}))
	}
	var heap rbb.Heap
	if c.HeapLimit > 0 {
		heap = rbb.NewBudgetHeap(c.HeapLimit)
	}
	return rbb.Create(heap, c.BufferSize, c.BlockMax, opts...)
}
