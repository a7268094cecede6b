package hwcomp

import (
	"slices"
	"testing"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/hal/noop"
	"github.com/gogpu/hwcomp/pipe"
)

func TestPanelSplitSpanningLayer(t *testing.T) {
	caps := testCaps()
	caps.SplitX = 540
	caps.DualPipe = true
	dev := noop.NewDevice()
	ctx := newTestContext(t, caps, dev)
	list := &LayerList{Layers: []Layer{rgbLayer(1, geom.R(0, 0, 1080, 100))}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	if a.Strategy != StrategyFullHW {
		t.Fatalf("Strategy = %s, want %s", a.Strategy, StrategyFullHW)
	}
	if got := a.Layers[0].Pipes; !slices.Equal(got, []pipe.ID{2, 3}) {
		t.Fatalf("Pipes = %v, want [2 3]", got)
	}
	tests := []struct {
		id    pipe.ID
		mixer hal.Mixer
		crop  geom.Rect
		dst   geom.Rect
	}{
		{2, hal.MixerLeft, geom.R(0, 0, 540, 100), geom.R(0, 0, 540, 100)},
		{3, hal.MixerRight, geom.R(540, 0, 1080, 100), geom.R(0, 0, 540, 100)},
	}
	for _, tt := range tests {
		p := dev.Pipe(tt.id)
		if p.Mixer != tt.mixer {
			t.Errorf("pipe %d Mixer = %s, want %s", tt.id, p.Mixer, tt.mixer)
		}
		if p.Config.Crop != tt.crop || p.Config.Dst != tt.dst {
			t.Errorf("pipe %d crop %v dst %v, want crop %v dst %v",
				tt.id, p.Config.Crop, p.Config.Dst, tt.crop, tt.dst)
		}
		if p.Config.Flags&hal.PipeDualPipe == 0 {
			t.Errorf("pipe %d missing dual-pipe flag", tt.id)
		}
	}
}

func TestPanelSplitDisjointLayers(t *testing.T) {
	caps := testCaps()
	caps.SplitX = 540
	dev := noop.NewDevice()
	ctx := newTestContext(t, caps, dev)
	list := &LayerList{Layers: []Layer{
		rgbLayer(1, geom.R(0, 0, 500, 100)),
		rgbLayer(2, geom.R(600, 0, 1000, 100)),
	}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	if a.Strategy != StrategyFullHW {
		t.Fatalf("Strategy = %s, want %s", a.Strategy, StrategyFullHW)
	}
	left, right := a.Layers[0].Pipes, a.Layers[1].Pipes
	if len(left) != 1 || len(right) != 1 {
		t.Fatalf("Pipes = %v %v, want one pipe each", left, right)
	}
	if p := dev.Pipe(left[0]); p.Mixer != hal.MixerLeft || p.Config.Dst != geom.R(0, 0, 500, 100) {
		t.Errorf("left layer pipe on %s dst %v", p.Mixer, p.Config.Dst)
	}
	p := dev.Pipe(right[0])
	if p.Mixer != hal.MixerRight {
		t.Errorf("right layer pipe Mixer = %s, want right", p.Mixer)
	}
	if want := geom.R(60, 0, 460, 100); p.Config.Dst != want {
		t.Errorf("right layer Dst = %v, want %v", p.Config.Dst, want)
	}
	if p.Config.Flags&hal.PipeDualPipe != 0 {
		t.Error("dual-pipe flag set without the capability")
	}
	pipesUnique(t, a)
}

func TestPanelSplitVideoMeetsOnEvenColumn(t *testing.T) {
	caps := testCaps()
	caps.SplitX = 540
	dev := noop.NewDevice()
	ctx := newTestContext(t, caps, dev)
	list := &LayerList{Layers: []Layer{yuvLayer(1, 1082, 100, geom.R(0, 0, 1080, 100))}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	ids := a.Layers[0].Pipes
	if len(ids) != 2 {
		t.Fatalf("Pipes = %v, want two", ids)
	}
	lc, rc := dev.Pipe(ids[0]).Config.Crop, dev.Pipe(ids[1]).Config.Crop
	if lc.Right != rc.Left {
		t.Errorf("crops %v and %v do not meet", lc, rc)
	}
	if lc.Right%2 != 0 {
		t.Errorf("crop boundary %d is odd", lc.Right)
	}
	if lc.Left != 0 || rc.Right != 1082 {
		t.Errorf("crops %v %v do not cover the source", lc, rc)
	}
}

func TestPanelSplitThinSliceAtSeam(t *testing.T) {
	// 5x upscale: the one left column maps to a fifth of a source pixel.
	dst := geom.R(539, 0, 1039, 500)
	rgb := opaqueLayer(1, geom.R(0, 0, 100, 100))
	rgb.DisplayFrame = dst
	flipped := yuvLayer(1, 100, 100, dst)
	flipped.Transform = geom.FlipH | geom.FlipV

	tests := []struct {
		name      string
		layer     Layer
		leftCrop  geom.Rect
		rightCrop geom.Rect
	}{
		{"rgb", rgb, geom.R(0, 0, 1, 100), geom.R(1, 0, 100, 100)},
		{"flipped video", flipped, geom.R(98, 0, 100, 100), geom.R(0, 0, 98, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := testCaps()
			caps.SplitX = 540
			dev := noop.NewDevice()
			ctx := newTestContext(t, caps, dev)
			list := &LayerList{Layers: []Layer{tt.layer}}
			a := prepareFrame(t, ctx, DisplayPrimary, list)

			if a.Layers[0].Composition != CompositionOverlay {
				t.Fatalf("Composition = %s, want %s", a.Layers[0].Composition, CompositionOverlay)
			}
			ids := a.Layers[0].Pipes
			if len(ids) != 2 {
				t.Fatalf("Pipes = %v, want one per mixer", ids)
			}
			var left, right *noop.Pipe
			for _, id := range ids {
				p := dev.Pipe(id)
				if p.Mixer == hal.MixerLeft {
					left = p
				} else {
					right = p
				}
			}
			if left == nil || right == nil {
				t.Fatalf("pipes %v are not on both mixers", ids)
			}
			if want := geom.R(539, 0, 540, 500); left.Config.Dst != want {
				t.Errorf("left Dst = %v, want %v", left.Config.Dst, want)
			}
			if want := geom.R(0, 0, 499, 500); right.Config.Dst != want {
				t.Errorf("right Dst = %v, want %v", right.Config.Dst, want)
			}
			if left.Config.Crop != tt.leftCrop {
				t.Errorf("left Crop = %v, want %v", left.Config.Crop, tt.leftCrop)
			}
			if right.Config.Crop != tt.rightCrop {
				t.Errorf("right Crop = %v, want %v", right.Config.Crop, tt.rightCrop)
			}
			if left.Config.Crop.Overlaps(right.Config.Crop) {
				t.Errorf("crops %v and %v overlap", left.Config.Crop, right.Config.Crop)
			}
		})
	}
}

func TestSourceSplit(t *testing.T) {
	caps := testCaps()
	caps.SourceSplit = true
	dev := noop.NewDevice()
	ctx := newDisplayContext(t, caps, dev, DisplayAttributes{Width: 2560, Height: 1600})
	list := &LayerList{Layers: []Layer{
		rgbLayer(1, geom.R(0, 0, 2560, 1600)),
		rgbLayer(2, geom.R(0, 0, 100, 100)),
	}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	if a.Strategy != StrategyFullHW {
		t.Fatalf("Strategy = %s, want %s", a.Strategy, StrategyFullHW)
	}
	wide := a.Layers[0].Pipes
	if !slices.Equal(wide, []pipe.ID{2, 3}) {
		t.Fatalf("wide layer Pipes = %v, want [2 3]", wide)
	}
	l, r := dev.Pipe(2).Config, dev.Pipe(3).Config
	if l.Crop != geom.R(0, 0, 1280, 1600) || r.Crop != geom.R(1280, 0, 2560, 1600) {
		t.Errorf("crops = %v %v", l.Crop, r.Crop)
	}
	if l.Z != r.Z {
		t.Errorf("halves at z %d and %d, want the same stage", l.Z, r.Z)
	}
	if l.Flags&hal.PipeSourceSplit == 0 || r.Flags&hal.PipeSourceSplit == 0 {
		t.Error("source-split flag missing")
	}
	if dev.Pipe(3).Mixer != hal.MixerLeft {
		t.Error("right half not on the left mixer")
	}
	if got := a.Layers[1].Pipes; len(got) != 1 {
		t.Errorf("narrow layer Pipes = %v, want one", got)
	}
}

func TestWideVideoOnSingleMixer(t *testing.T) {
	dev := noop.NewDevice()
	ctx := newTestContext(t, testCaps(), dev)
	list := &LayerList{Layers: []Layer{yuvLayer(1, 3840, 2160, geom.R(0, 0, 1080, 608))}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	if a.Stats.YUV4kCount != 1 {
		t.Errorf("YUV4kCount = %d, want 1", a.Stats.YUV4kCount)
	}
	if got := a.Layers[0].Pipes; !slices.Equal(got, []pipe.ID{0, 1}) {
		t.Fatalf("Pipes = %v, want [0 1]", got)
	}
	l, r := dev.Pipe(0).Config, dev.Pipe(1).Config
	if l.Crop != geom.R(0, 0, 1920, 2160) || r.Crop != geom.R(1920, 0, 3840, 2160) {
		t.Errorf("crops = %v %v", l.Crop, r.Crop)
	}
	if l.Dst != geom.R(0, 0, 540, 608) || r.Dst != geom.R(540, 0, 1080, 608) {
		t.Errorf("dsts = %v %v", l.Dst, r.Dst)
	}
	if l.Z != 0 || r.Z != 1 {
		t.Errorf("z = %d %d, want 0 1", l.Z, r.Z)
	}
}

func TestWideRGBIsIneligible(t *testing.T) {
	ctx := newTestContext(t, testCaps(), noop.NewDevice())
	l := rgbLayer(1, geom.R(0, 0, 1080, 1920))
	l.Buffer.Width = 4096
	l.SourceCrop = geom.R(0, 0, 4096, 1920)
	list := &LayerList{Layers: []Layer{l}}
	prepareFrame(t, ctx, DisplayPrimary, list)
	if list.Layers[0].Composition != CompositionFramebuffer {
		t.Errorf("Composition = %s, want framebuffer", list.Layers[0].Composition)
	}
}

func TestPipeFlags(t *testing.T) {
	tests := []struct {
		name  string
		caps  func(*Capabilities)
		layer func() Layer
		want  hal.PipeFlags
		not   hal.PipeFlags
	}{
		{
			name:  "video gets bandwidth compression",
			layer: func() Layer { return yuvLayer(1, 640, 360, geom.R(0, 0, 640, 360)) },
			want:  hal.PipeBWC,
			not:   hal.PipeSecure,
		},
		{
			name: "secure video",
			layer: func() Layer {
				l := yuvLayer(1, 640, 360, geom.R(0, 0, 640, 360))
				l.Buffer.Flags |= buffer.FlagSecure
				return l
			},
			want: hal.PipeSecure,
			not:  hal.PipeBWC,
		},
		{
			name: "interlaced video",
			layer: func() Layer {
				l := yuvLayer(1, 640, 360, geom.R(0, 0, 640, 360))
				l.Buffer.Flags |= buffer.FlagInterlaced
				return l
			},
			want: hal.PipeDeinterlace,
		},
		{
			name: "no compression without the capability",
			caps: func(c *Capabilities) { c.BWC = false },
			layer: func() Layer {
				return yuvLayer(1, 640, 360, geom.R(0, 0, 640, 360))
			},
			not: hal.PipeBWC,
		},
		{
			name: "decimation",
			caps: func(c *Capabilities) { c.Decimation = true },
			layer: func() Layer {
				return yuvLayer(1, 1920, 1080, geom.R(0, 0, 240, 135))
			},
			want: hal.PipeDecimation,
		},
		{
			name: "color fill",
			layer: func() Layer {
				return Layer{
					DisplayFrame: geom.R(0, 0, 200, 200),
					Flags:        FlagColorFill,
					Color:        0xFF0000FF,
					Blend:        hal.BlendNone,
					PlaneAlpha:   0xFF,
				}
			},
			want: hal.PipeSolidFill,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := testCaps()
			if tt.caps != nil {
				tt.caps(&caps)
			}
			dev := noop.NewDevice()
			ctx := newTestContext(t, caps, dev)
			list := &LayerList{Layers: []Layer{tt.layer()}}
			a := prepareFrame(t, ctx, DisplayPrimary, list)
			if list.Layers[0].Composition != CompositionOverlay {
				t.Fatalf("Composition = %s, want overlay", list.Layers[0].Composition)
			}
			cfg := dev.Pipe(a.Layers[0].Pipes[0]).Config
			if cfg.Flags&tt.want != tt.want {
				t.Errorf("Flags = %#x, want %#x set", cfg.Flags, tt.want)
			}
			if cfg.Flags&tt.not != 0 {
				t.Errorf("Flags = %#x, want %#x clear", cfg.Flags, tt.not)
			}
		})
	}
}

func TestColorFillForeground(t *testing.T) {
	dev := noop.NewDevice()
	ctx := newTestContext(t, testCaps(), dev)
	list := &LayerList{Layers: []Layer{{
		DisplayFrame: geom.R(0, 0, 200, 200),
		Flags:        FlagColorFill,
		Color:        0x00FF00FF,
		Blend:        hal.BlendNone,
		PlaneAlpha:   0xFF,
	}}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)
	cfg := dev.Pipe(a.Layers[0].Pipes[0]).Config
	if !cfg.Foreground {
		t.Error("opaque bottom layer not marked foreground")
	}
	if cfg.Color != 0x00FF00FF {
		t.Errorf("Color = %#x, want 0x00FF00FF", cfg.Color)
	}
	if cfg.Src.Width != 200 || cfg.Crop != geom.R(0, 0, 200, 200) {
		t.Errorf("Src %+v crop %v, want a 200x200 solid source", cfg.Src, cfg.Crop)
	}
}

func TestRotatorDownscale(t *testing.T) {
	caps := testCaps()
	caps.RotatorMaxDownscale = 2
	dev := noop.NewDevice()
	ctx := newTestContext(t, caps, dev)
	list := &LayerList{Layers: []Layer{yuvLayer(1, 1920, 1080, geom.R(0, 0, 240, 135))}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	if list.Layers[0].Composition != CompositionOverlay {
		t.Fatalf("Composition = %s, want overlay", list.Layers[0].Composition)
	}
	if a.Layers[0].Rotator < 0 {
		t.Fatal("no rotation session for downscaled video")
	}
	rot := dev.Rotators()[0]
	if rot.Config.Downscale != 2 || rot.Config.Flags&hal.RotatorDownscale == 0 {
		t.Errorf("rotator downscale = %d flags %#x", rot.Config.Downscale, rot.Config.Flags)
	}
	src := dev.Pipe(a.Layers[0].Pipes[0]).Config.Src
	if src.Width != 960 || src.Height != 540 {
		t.Errorf("pipe Src = %dx%d, want 960x540", src.Width, src.Height)
	}
}

func TestRotatorRingReused(t *testing.T) {
	dev := noop.NewDevice()
	ctx := newTestContext(t, testCaps(), dev)
	l := yuvLayer(1, 640, 360, geom.R(0, 0, 360, 640))
	l.Transform = geom.Rot90
	list := &LayerList{Layers: []Layer{l}}

	for range 3 {
		prepareFrame(t, ctx, DisplayPrimary, list)
	}
	if got := dev.OpenRotators(); got != 1 {
		t.Errorf("open rotators = %d, want 1", got)
	}

	list.Layers = nil
	prepareFrame(t, ctx, DisplayPrimary, list)
	if got := ctx.Rotators().Live(); got != 0 {
		t.Errorf("live sessions after the video left = %d, want 0", got)
	}
}

func TestRotatorExhaustionDemotes(t *testing.T) {
	caps := testCaps()
	caps.RotatorSessions = 1
	ctx := newTestContext(t, caps, noop.NewDevice())
	a1 := yuvLayer(1, 640, 360, geom.R(0, 0, 360, 640))
	a1.Transform = geom.Rot90
	a2 := yuvLayer(2, 640, 360, geom.R(400, 0, 760, 640))
	a2.Transform = geom.Rot270
	list := &LayerList{Layers: []Layer{a1, a2}}
	a := prepareFrame(t, ctx, DisplayPrimary, list)

	if got := a.Count(CompositionOverlay); got != 1 {
		t.Errorf("overlay layers = %d, want 1", got)
	}
	if got := ctx.Rotators().InUse(); got != 1 {
		t.Errorf("sessions in use = %d, want 1", got)
	}
}

func TestTwoDisplaysShareNoPipe(t *testing.T) {
	ctx := newTestContext(t, testCaps(), noop.NewDevice())
	if err := ctx.ConnectDisplay(1, DisplayAttributes{Width: 720, Height: 480}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.ConfigBegin(); err != nil {
		t.Fatal(err)
	}
	a0, err := ctx.Prepare(DisplayPrimary, threeLayers())
	if err != nil {
		t.Fatal(err)
	}
	a1, err := ctx.Prepare(1, &LayerList{Layers: []Layer{
		rgbLayer(10, geom.R(0, 0, 100, 100)),
		rgbLayer(11, geom.R(100, 0, 200, 100)),
	}})
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.ConfigDone(); err != nil {
		t.Fatal(err)
	}

	if a0.Strategy != StrategyFullHW || a1.Strategy != StrategyFullHW {
		t.Fatalf("strategies = %s %s, want full-hw on both", a0.Strategy, a1.Strategy)
	}
	for _, id := range a1.Pipes() {
		if slices.Contains(a0.Pipes(), id) {
			t.Errorf("pipe %d used by both displays", id)
		}
	}
	for _, st := range ctx.Pipes().Snapshot() {
		if !st.Used {
			continue
		}
		owner := DisplayPrimary
		if slices.Contains(a1.Pipes(), st.ID) {
			owner = 1
		}
		if st.Display != owner {
			t.Errorf("pipe %d bound to display %d, want %d", st.ID, st.Display, owner)
		}
	}
}
