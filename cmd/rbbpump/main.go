package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/ringblk/pkg/env"
	fx "github.com/robotalks/ringblk/pkg/framework"
	"github.com/robotalks/ringblk/pkg/l0/comm"
	"github.com/robotalks/ringblk/pkg/pump"
	"github.com/robotalks/ringblk/pkg/sink"
	"github.com/robotalks/ringblk/pkg/sink/mqtt"
	"github.com/robotalks/ringblk/pkg/sink/websocket"
	"github.com/robotalks/ringblk/pkg/stats"
)

// sinkBroadcast serves frames to websocket clients at /frames of the
// metrics endpoint.
const sinkBroadcast = "broadcast"

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.Default()
	if err := conf.Resolve(flag.CommandLine); err != nil {
		glog.Exit(err)
	}

	buf, err := conf.NewBuffer()
	if err != nil {
		glog.Exitf("create buffer: %v", err)
	}
	defer buf.Destroy()

	dev, err := openDevice(conf.Device)
	if err != nil {
		glog.Exitf("open %s: %v", conf.Device, err)
	}
	defer dev.Close()

	fifo := comm.NewFIFO(dev, buf.Buffer)
	fifo.Timeout = conf.SyncTimeout.Duration
	fifo.Notifier = comm.StateChangedFunc(func(_ context.Context, state comm.SyncState) {
		if state.IsReady() && !state.IsReceiving() {
			glog.Infof("%s synchronized", conf.Device)
		} else if !state.IsReady() && !state.IsReceiving() {
			glog.Warningf("%s out of sync", conf.Device)
		}
	})

	mux := http.NewServeMux()
	var writer sink.PacketWriter
	if conf.SinkURL == sinkBroadcast {
		if conf.MetricsAddr == "" {
			glog.Exit("-sink broadcast requires -metrics")
		}
		broadcaster := websocket.NewBroadcaster()
		mux.Handle("/frames", broadcaster)
		writer = broadcaster
	} else {
		w, err := sink.Open(conf.SinkURL, conf.ID+"/frames")
		if err != nil {
			glog.Exitf("open sink %s: %v", conf.SinkURL, err)
		}
		defer w.Close()
		writer = w
	}

	p := pump.New(buf.Buffer, writer)
	p.Signal = fifo.Signal
	p.MaxBatch = conf.MaxBatch
	if p.MaxBatch == 0 {
		p.Skip = comm.IsAborted
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("fifo", fifo), fx.NamedRun("pump", p))

	if conf.StatsURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.StatsURL)
		if err != nil {
			glog.Exitf("stats: %v", err)
		}
		if err = q.Connect(); err != nil {
			glog.Exitf("stats connect: %v", err)
		}
		defer q.Close()
		runner.Go(fx.NamedRun("stats", &stats.Reporter{
			Buffer:   buf.Buffer,
			Writer:   mqtt.NewWriter(q, conf.ID+"/stats"),
			Interval: conf.StatsInterval.Duration,
			Source:   conf.ID,
			Dropped:  fifo.Dropped,
		}))
	}

	if conf.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			stats.NewCollector(buf.Buffer, fifo.Dropped, prometheus.Labels{"source": conf.ID}),
			prometheus.NewGoCollector(),
		)
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: conf.MetricsAddr, Handler: mux}
		runner.Go(fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
			glog.Infof("serving metrics on %s", conf.MetricsAddr)
			return fx.RunWithContextCancel(ctx, func() { server.Close() }, server.ListenAndServe)
		})))
	}

	glog.Infof("pumping %s (buffer %d bytes, %d blocks) to %s", conf.Device, buf.Capacity(), buf.BlockMax(), conf.SinkURL)
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
	c := p.Counters()
	glog.Infof("stopped: %d packets, %d bytes, %d dropped, %d write errors", c.Packets, c.Bytes, fifo.Dropped(), c.WriteErrors)
}
