package sh

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ringblk/pkg/env"
	"github.com/robotalks/ringblk/pkg/rbb"
	"github.com/robotalks/ringblk/pkg/stats"
)

// Shell provides ishell backed interactive shell over a local buffer.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Buffer *rbb.Owned

	nextID int
	blocks map[int]*rbb.Block
	ids    map[*rbb.Block]int
	queues map[int]rbb.BlockQueue
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&InitCmd,
		&AllocCmd,
		&WriteCmd,
		&PutCmd,
		&GetCmd,
		&FreeCmd,
		&GetQueueCmd,
		&FreeQueueCmd,
		&ListCmd,
		&StatCmd,
		&CheckCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Reset destroys the current buffer and creates a new one from Config.
func (s *Shell) Reset() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	buf, err := s.Config.NewBuffer()
	if err != nil {
		return err
	}
	if s.Buffer != nil {
		s.Buffer.Destroy()
	}
	s.Buffer = buf
	s.nextID = 1
	s.blocks = make(map[int]*rbb.Block)
	s.ids = make(map[*rbb.Block]int)
	s.queues = make(map[int]rbb.BlockQueue)
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("rbb[%d/%d] > ", buf.Capacity(), buf.BlockMax()))
	}
	return nil
}

func (s *Shell) track(blk *rbb.Block) int {
	if id, ok := s.ids[blk]; ok {
		return id
	}
	id := s.nextID
	s.nextID++
	s.blocks[id], s.ids[blk] = blk, id
	return id
}

func (s *Shell) untrack(blk *rbb.Block) {
	if id, ok := s.ids[blk]; ok {
		delete(s.blocks, id)
		delete(s.ids, blk)
	}
}

func (s *Shell) block(arg string) (*rbb.Block, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid block id %q", arg)
	}
	blk, ok := s.blocks[id]
	if !ok {
		return nil, fmt.Errorf("unknown block %d", id)
	}
	return blk, nil
}

func (s *Shell) print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// FormatBlock formats a block for display.
func FormatBlock(id int, blk *rbb.Block) string {
	return fmt.Sprintf("#%d [%d, %d) %s", id, blk.Offset(), blk.Offset()+blk.Len(), blk.Status())
}

// parseData parses a hex string (0x prefixed) or a plain string.
func parseData(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "0x") {
		return hex.DecodeString(arg[2:])
	}
	return []byte(arg), nil
}

// cmdFunc wraps a command: the buffer is created on first use and misuse
// of the buffer is reported as an error instead of crashing the shell.
func cmdFunc(minArgs int, usage string, fn func(*Shell, *ishell.Context) error) func(*ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < minArgs {
			c.Err(fmt.Errorf("usage: %s", usage))
			return
		}
		s := ShellFrom(c)
		defer func() {
			if r := recover(); r != nil {
				c.Err(fmt.Errorf("%v", r))
			}
		}()
		if s.Buffer == nil {
			if err := s.Reset(); err != nil {
				c.Err(err)
				return
			}
		}
		if err := fn(s, c); err != nil {
			c.Err(err)
		}
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		for _, line := range strings.Split(strings.Join(args, " "), ";") {
			if fields := strings.Fields(line); len(fields) > 0 {
				if err := s.Shell.Process(fields...); err != nil {
					log.Fatalln(err)
				}
			}
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// InitCmd recreates the buffer.
	InitCmd = ishell.Cmd{
		Name: "init",
		Help: "SIZE NUM [spin|mutex]",
		Func: cmdFunc(2, "SIZE NUM [spin|mutex]", func(s *Shell, c *ishell.Context) (err error) {
			conf := *s.Config
			if conf.BufferSize, err = strconv.Atoi(c.Args[0]); err != nil {
				return
			}
			if conf.BlockMax, err = strconv.Atoi(c.Args[1]); err != nil {
				return
			}
			if len(c.Args) > 2 {
				conf.Lock = c.Args[2]
			}
			prev := s.Config
			s.Config = &conf
			if err = s.Reset(); err != nil {
				s.Config = prev
			}
			return
		}),
	}

	// AllocCmd allocates a block.
	AllocCmd = ishell.Cmd{
		Name:    "alloc",
		Aliases: []string{"a"},
		Help:    "SIZE",
		Func: cmdFunc(1, "SIZE", func(s *Shell, c *ishell.Context) error {
			size, err := strconv.Atoi(c.Args[0])
			if err != nil {
				return err
			}
			blk, err := s.Buffer.Alloc(size)
			if err != nil {
				return err
			}
			id := s.track(blk)
			s.print(c, map[string]int{"id": id, "offset": blk.Offset(), "len": blk.Len()}, FormatBlock(id, blk))
			return nil
		}),
	}

	// WriteCmd writes data into an inited block.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "ID DATA (0x for hex)",
		Func: cmdFunc(2, "ID DATA", func(s *Shell, c *ishell.Context) error {
			blk, err := s.block(c.Args[0])
			if err != nil {
				return err
			}
			if blk.Status() != rbb.StatusInited {
				return fmt.Errorf("block is %s", blk.Status())
			}
			data, err := parseData(strings.Join(c.Args[1:], " "))
			if err != nil {
				return err
			}
			if n := copy(blk.Bytes(), data); n < len(data) {
				return fmt.Errorf("truncated to %d bytes", n)
			}
			return nil
		}),
	}

	// PutCmd puts a block.
	PutCmd = ishell.Cmd{
		Name:    "put",
		Aliases: []string{"p"},
		Help:    "ID...",
		Func: cmdFunc(1, "ID...", func(s *Shell, c *ishell.Context) error {
			for _, arg := range c.Args {
				blk, err := s.block(arg)
				if err != nil {
					return err
				}
				s.Buffer.Put(blk)
			}
			return nil
		}),
	}

	// GetCmd gets the oldest ready block.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "",
		Func: cmdFunc(0, "", func(s *Shell, c *ishell.Context) error {
			blk := s.Buffer.Get()
			if blk == nil {
				s.print(c, nil, "none")
				return nil
			}
			id := s.track(blk)
			s.print(c, map[string]interface{}{"id": id, "data": hex.EncodeToString(blk.Bytes())},
				FormatBlock(id, blk)+" "+hex.EncodeToString(blk.Bytes()))
			return nil
		}),
	}

	// FreeCmd frees blocks.
	FreeCmd = ishell.Cmd{
		Name:    "free",
		Aliases: []string{"f"},
		Help:    "ID...",
		Func: cmdFunc(1, "ID...", func(s *Shell, c *ishell.Context) error {
			for _, arg := range c.Args {
				blk, err := s.block(arg)
				if err != nil {
					return err
				}
				s.Buffer.Free(blk)
				s.untrack(blk)
			}
			return nil
		}),
	}

	// GetQueueCmd takes a block queue.
	GetQueueCmd = ishell.Cmd{
		Name:    "getq",
		Aliases: []string{"gq"},
		Help:    "MAXLEN",
		Func: cmdFunc(1, "MAXLEN", func(s *Shell, c *ishell.Context) error {
			maxLen, err := strconv.Atoi(c.Args[0])
			if err != nil {
				return err
			}
			q, ok := s.Buffer.GetQueue(maxLen)
			if !ok {
				s.print(c, nil, "none")
				return nil
			}
			id := s.nextID
			s.nextID++
			s.queues[id] = q
			blks := q.Blocks()
			ids := make([]int, len(blks))
			for n, blk := range blks {
				ids[n] = s.track(blk)
			}
			s.print(c, map[string]interface{}{"queue": id, "blocks": ids, "len": q.Len()},
				fmt.Sprintf("queue #%d: %d blocks %v, %d bytes", id, q.NumBlocks(), ids, q.Len()))
			return nil
		}),
	}

	// FreeQueueCmd frees a block queue.
	FreeQueueCmd = ishell.Cmd{
		Name:    "freeq",
		Aliases: []string{"fq"},
		Help:    "QUEUE",
		Func: cmdFunc(1, "QUEUE", func(s *Shell, c *ishell.Context) error {
			id, err := strconv.Atoi(c.Args[0])
			if err != nil {
				return err
			}
			q, ok := s.queues[id]
			if !ok {
				return fmt.Errorf("unknown queue %d", id)
			}
			blks := q.Blocks()
			s.Buffer.FreeQueue(q)
			delete(s.queues, id)
			for _, blk := range blks {
				s.untrack(blk)
			}
			return nil
		}),
	}

	// ListCmd lists tracked blocks.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"ls"},
		Help:    "",
		Func: cmdFunc(0, "", func(s *Shell, c *ishell.Context) error {
			ids := make([]int, 0, len(s.blocks))
			for id := range s.blocks {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			for _, id := range ids {
				c.Println(FormatBlock(id, s.blocks[id]))
			}
			return nil
		}),
	}

	// StatCmd prints buffer stats.
	StatCmd = ishell.Cmd{
		Name:    "stat",
		Aliases: []string{"s"},
		Help:    "",
		Func: cmdFunc(0, "", func(s *Shell, c *ishell.Context) error {
			snapshot := stats.FromBuffer(s.Buffer.Buffer, s.Config.ID, 0, time.Now())
			s.print(c, &snapshot.Snapshot, snapshot.Summary())
			return nil
		}),
	}

	// CheckCmd verifies buffer invariants.
	CheckCmd = ishell.Cmd{
		Name: "check",
		Help: "",
		Func: cmdFunc(0, "", func(s *Shell, c *ishell.Context) error {
			if err := s.Buffer.Verify(); err != nil {
				return err
			}
			s.print(c, true, "OK")
			return nil
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	env.SetupFlags()
	flag.Parse()
	conf := env.Default()
	if err := conf.Resolve(flag.CommandLine); err != nil {
		log.Fatalln(err)
	}
	New(conf).Run(flag.Args()...)
}
