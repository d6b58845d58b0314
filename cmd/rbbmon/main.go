package main

import (
	"encoding/hex"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	fx "github.com/robotalks/ringblk/pkg/framework"
	"github.com/robotalks/ringblk/pkg/l0/comm"
	"github.com/robotalks/ringblk/pkg/sink/mqtt"
	"github.com/robotalks/ringblk/pkg/sink/stream"
	"github.com/robotalks/ringblk/pkg/stats"
)

var (
	mqttURL  = "mqtt://localhost:1883/rbb/"
	fileName string
)

func init() {
	if val := os.Getenv("RBB_STATS"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&fileName, "file", fileName, "Read frames from a file written by a file:// sink, - for stdin.")
}

func printFrames(source string, payload []byte) {
	err := comm.DecodeFrames(payload, func(pkt *comm.Packet) error {
		log.Printf("%s: seq=%d code=%02x data=%s", source, pkt.Seq, pkt.Code, hex.EncodeToString(pkt.Data))
		return nil
	})
	if err != nil {
		log.Printf("%s: %v", source, err)
	}
}

func readFile() {
	in := io.Reader(os.Stdin)
	if fileName != "-" {
		f, err := os.Open(fileName)
		if err != nil {
			log.Fatalln(err)
		}
		defer f.Close()
		in = f
	}
	r := stream.New(struct {
		io.Reader
		io.Writer
	}{in, nil})
	for {
		pkt, err := r.ReadPacket()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalln(err)
		}
		printFrames(fileName, pkt)
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	if fileName != "" {
		readFile()
		return
	}

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	reader := mqtt.NewReader(q, "+/frames", "+/stats")
	runner := fx.NewRunner().HandleSignals()
	runner.Go(reader)
	for msg := range reader.Messages() {
		source := msg.Topic[:strings.LastIndex(msg.Topic, "/")]
		if strings.HasSuffix(msg.Topic, "/frames") {
			printFrames(source, msg.Payload)
			continue
		}
		s, err := stats.Decode(msg.Payload)
		if err != nil {
			log.Printf("%s: bad snapshot: %v", source, err)
			continue
		}
		log.Printf("%s", s.Summary())
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
