// Command mdpsim replays a composition scenario against an in-memory
// display controller and prints the decision of every frame.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/hwcomp"
	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/hal/noop"
)

func main() {
	var (
		configPath   = flag.String("config", "", "capability and policy config (YAML)")
		scenarioPath = flag.String("scenario", "scenario.yaml", "scenario to replay (YAML)")
		verbose      = flag.Bool("v", false, "log allocator decisions")
		dump         = flag.Bool("dump", false, "dump the pipe table after the last frame")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	hwcomp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := hwcomp.DefaultConfig()
	if *configPath != "" {
		c, err := hwcomp.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *c
	}

	sc, err := LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}

	if err := run(cfg, sc, os.Stdout, *dump); err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
}

// simulator is one replay over a recording device.
type simulator struct {
	ctx     *hwcomp.Context
	dev     *noop.Device
	alloc   *noop.Allocator
	targets map[int]*buffer.Descriptor
	out     io.Writer
}

func run(cfg hwcomp.Config, sc *Scenario, out io.Writer, dump bool) error {
	dev := noop.NewDevice()
	alloc := noop.NewAllocator()
	ctx, err := hwcomp.NewContext(cfg.Capabilities, dev, alloc,
		hwcomp.WithPolicy(cfg.Policy),
		hwcomp.WithBlitter(&noop.Blitter{}))
	if err != nil {
		return err
	}
	defer ctx.Close()

	s := &simulator{ctx: ctx, dev: dev, alloc: alloc, targets: make(map[int]*buffer.Descriptor), out: out}
	for _, d := range sc.Displays {
		if err := s.connect(d); err != nil {
			return err
		}
	}
	n := 0
	for _, f := range sc.Frames {
		for range max(f.Repeat, 1) {
			if err := s.frame(n, f); err != nil {
				return fmt.Errorf("frame %d: %w", n, err)
			}
			n++
		}
	}
	if dump {
		return ctx.Dump(out)
	}
	return nil
}

func (s *simulator) connect(d DisplayEntry) error {
	attrs, err := d.attributes()
	if err != nil {
		return err
	}
	if err := s.ctx.ConnectDisplay(d.ID, attrs); err != nil {
		return err
	}
	format := attrs.Format
	if format == 0 {
		format = buffer.FormatRGBA8888
	}
	t, err := s.alloc.Allocate(buffer.Request{Width: attrs.Width, Height: attrs.Height, Format: format})
	if err != nil {
		return err
	}
	s.targets[d.ID] = t
	return nil
}

func (s *simulator) disconnect(id int) error {
	if t, ok := s.targets[id]; ok {
		if err := s.alloc.Free(t); err != nil {
			return err
		}
		delete(s.targets, id)
	}
	return s.ctx.DisconnectDisplay(id)
}

func (s *simulator) frame(n int, f FrameEntry) error {
	for _, id := range f.Disconnect {
		if err := s.disconnect(id); err != nil {
			return err
		}
	}
	for _, d := range f.Connect {
		if err := s.connect(d); err != nil {
			return err
		}
	}

	lists := make([]*hwcomp.LayerList, 0, len(f.Displays))
	for _, ds := range f.Displays {
		if ds.Blank != nil {
			if err := s.ctx.Blank(ds.ID, *ds.Blank); err != nil {
				return err
			}
		}
		list, err := ds.list()
		if err != nil {
			return err
		}
		list.Target.Buffer = s.targets[ds.ID]
		lists = append(lists, list)
	}

	if err := s.ctx.ConfigBegin(); err != nil {
		return err
	}
	for _, list := range lists {
		a, err := s.ctx.Prepare(list.Display, list)
		if err != nil {
			_ = s.ctx.ConfigDone()
			return err
		}
		s.report(n, a)
	}
	if err := s.ctx.ConfigDone(); err != nil {
		return err
	}
	for _, list := range lists {
		if err := s.ctx.Set(list.Display, list); err != nil {
			return err
		}
	}
	return nil
}

func (s *simulator) report(n int, a *hwcomp.Assignment) {
	fmt.Fprintf(s.out, "frame %d display %d: %s overlay=%d framebuffer=%d dropped=%d pipes=%v",
		n, a.Display, a.Strategy,
		a.Count(hwcomp.CompositionOverlay),
		a.Count(hwcomp.CompositionFramebuffer),
		a.Count(hwcomp.CompositionDropped),
		a.Pipes())
	if len(a.TargetPipes) > 0 {
		fmt.Fprintf(s.out, " target=%s", a.TargetFormat)
	}
	if a.Reason != nil {
		fmt.Fprintf(s.out, " reason=%q", a.Reason)
	}
	fmt.Fprintln(s.out)
}
