package hwcomp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/hwcomp/buffer"
	"github.com/gogpu/hwcomp/geom"
	"github.com/gogpu/hwcomp/hal"
	"github.com/gogpu/hwcomp/hal/noop"
	"github.com/gogpu/hwcomp/pipe"
)

const (
	testWidth  = 1080
	testHeight = 1920
)

// testCaps is DefaultCapabilities without partial update, so that every
// frame updates the whole display.
func testCaps() Capabilities {
	caps := DefaultCapabilities()
	caps.PartialUpdate = false
	return caps
}

// newTestContext returns a context with the primary display connected at
// testWidth x testHeight.
func newTestContext(t *testing.T, caps Capabilities, dev *noop.Device, opts ...Option) *Context {
	t.Helper()
	return newDisplayContext(t, caps, dev, DisplayAttributes{Width: testWidth, Height: testHeight}, opts...)
}

func newDisplayContext(t *testing.T, caps Capabilities, dev *noop.Device, attrs DisplayAttributes, opts ...Option) *Context {
	t.Helper()
	ctx, err := NewContext(caps, dev, noop.NewAllocator(), opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	if err := ctx.ConnectDisplay(DisplayPrimary, attrs); err != nil {
		t.Fatalf("ConnectDisplay() error = %v", err)
	}
	return ctx
}

// prepareFrame runs one ConfigBegin/Prepare/ConfigDone bracket.
func prepareFrame(t *testing.T, ctx *Context, id int, list *LayerList) *Assignment {
	t.Helper()
	if err := ctx.ConfigBegin(); err != nil {
		t.Fatalf("ConfigBegin() error = %v", err)
	}
	a, err := ctx.Prepare(id, list)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := ctx.ConfigDone(); err != nil {
		t.Fatalf("ConfigDone() error = %v", err)
	}
	return a
}

// rgbLayer is an unscaled premultiplied RGBA layer covering dst.
func rgbLayer(id uint64, dst geom.Rect) Layer {
	return Layer{
		Buffer: &buffer.Descriptor{
			ID:     id,
			Width:  dst.Width(),
			Height: dst.Height(),
			Format: buffer.FormatRGBA8888,
		},
		SourceCrop:   geom.R(0, 0, dst.Width(), dst.Height()),
		DisplayFrame: dst,
		Blend:        hal.BlendPremultiplied,
		PlaneAlpha:   0xFF,
	}
}

// opaqueLayer is an unscaled opaque RGBX layer covering dst.
func opaqueLayer(id uint64, dst geom.Rect) Layer {
	l := rgbLayer(id, dst)
	l.Buffer.Format = buffer.FormatRGBX8888
	l.Blend = hal.BlendNone
	return l
}

// yuvLayer is an NV12 video layer of w x h scaled onto dst.
func yuvLayer(id uint64, w, h int, dst geom.Rect) Layer {
	return Layer{
		Buffer: &buffer.Descriptor{
			ID:     id,
			Width:  w,
			Height: h,
			Format: buffer.FormatNV12,
		},
		SourceCrop:   geom.R(0, 0, w, h),
		DisplayFrame: dst,
		Blend:        hal.BlendNone,
		PlaneAlpha:   0xFF,
	}
}

// pipesUnique fails when two layers or the target share a pipe.
func pipesUnique(t *testing.T, a *Assignment) {
	t.Helper()
	seen := make(map[pipe.ID]bool)
	for _, id := range a.Pipes() {
		if seen[id] {
			t.Errorf("pipe %d assigned twice in %v", id, a.Pipes())
		}
		seen[id] = true
	}
}

func TestNewContextValidates(t *testing.T) {
	caps := DefaultCapabilities()
	caps.MaxMixerStages = 0
	_, err := NewContext(caps, noop.NewDevice(), noop.NewAllocator())
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("NewContext() error = %v, want *ConfigError", err)
	}
	if ce.Field != "max_mixer_stages" {
		t.Errorf("Field = %q, want max_mixer_stages", ce.Field)
	}

	bad := DefaultPolicy()
	bad.MaxAppLayers = 0
	if _, err := NewContext(DefaultCapabilities(), noop.NewDevice(), noop.NewAllocator(), WithPolicy(bad)); err == nil {
		t.Error("NewContext() with invalid policy succeeded")
	}
}

func TestNewContextPipePolicy(t *testing.T) {
	caps := DefaultCapabilities()
	caps.Variant = "no-such-variant"
	ctx, err := NewContext(caps, noop.NewDevice(), noop.NewAllocator())
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	if got := ctx.Pipes().Policy().Name; got == "" {
		t.Error("unknown variant left the registry without a policy")
	}

	vg, ok := pipe.LookupPolicy(pipe.VariantVGOnly)
	if !ok {
		t.Fatal("vg-only policy not registered")
	}
	ctx, err = NewContext(DefaultCapabilities(), noop.NewDevice(), noop.NewAllocator(), WithPipePolicy(vg))
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	if got := ctx.Pipes().Policy().Name; got != pipe.VariantVGOnly {
		t.Errorf("Policy().Name = %q, want %q", got, pipe.VariantVGOnly)
	}
}

func TestConnectDisplaySplit(t *testing.T) {
	tests := []struct {
		name   string
		caps   func(*Capabilities)
		id     int
		width  int
		split  splitMode
		splitX int
	}{
		{"single mixer", nil, DisplayPrimary, 1080, splitNone, 0},
		{"panel split", func(c *Capabilities) { c.SplitX = 540 }, DisplayPrimary, 1080, splitPanel, 540},
		{"split x ignored for external", func(c *Capabilities) { c.SplitX = 540 }, 1, 1080, splitNone, 0},
		{"wider than mixer", nil, 1, 2560, splitPanel, 1280},
		{"source split", func(c *Capabilities) { c.SourceSplit = true }, DisplayPrimary, 2560, splitSource, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := testCaps()
			if tt.caps != nil {
				tt.caps(&caps)
			}
			ctx, err := NewContext(caps, noop.NewDevice(), noop.NewAllocator())
			if err != nil {
				t.Fatalf("NewContext() error = %v", err)
			}
			if err := ctx.ConnectDisplay(tt.id, DisplayAttributes{Width: tt.width, Height: 1600}); err != nil {
				t.Fatalf("ConnectDisplay() error = %v", err)
			}
			d := ctx.displays[tt.id]
			if d.split != tt.split || d.splitX != tt.splitX {
				t.Errorf("split = %s@%d, want %s@%d", d.split, d.splitX, tt.split, tt.splitX)
			}
		})
	}
}

func TestConnectDisplayErrors(t *testing.T) {
	ctx := newTestContext(t, testCaps(), noop.NewDevice())
	if err := ctx.ConnectDisplay(DisplayPrimary, DisplayAttributes{Width: 10, Height: 10}); !errors.Is(err, ErrDisplayConnected) {
		t.Errorf("second ConnectDisplay() error = %v, want ErrDisplayConnected", err)
	}
	var ce *ConfigError
	if err := ctx.ConnectDisplay(1, DisplayAttributes{}); !errors.As(err, &ce) {
		t.Errorf("ConnectDisplay(0x0) error = %v, want *ConfigError", err)
	}
	if err := ctx.DisconnectDisplay(7); !errors.Is(err, ErrUnknownDisplay) {
		t.Errorf("DisconnectDisplay(7) error = %v, want ErrUnknownDisplay", err)
	}
}

func TestFrameBracket(t *testing.T) {
	ctx := newTestContext(t, testCaps(), noop.NewDevice())
	list := &LayerList{Layers: []Layer{rgbLayer(1, geom.R(0, 0, 100, 100))}}

	if _, err := ctx.Prepare(DisplayPrimary, list); !errors.Is(err, ErrNotInFrame) {
		t.Errorf("Prepare() outside bracket error = %v, want ErrNotInFrame", err)
	}
	if err := ctx.ConfigDone(); !errors.Is(err, ErrNotInFrame) {
		t.Errorf("ConfigDone() without ConfigBegin error = %v, want ErrNotInFrame", err)
	}
	if err := ctx.ConfigBegin(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.ConfigBegin(); !errors.Is(err, ErrInFrame) {
		t.Errorf("nested ConfigBegin() error = %v, want ErrInFrame", err)
	}
	if _, err := ctx.Prepare(DisplayPrimary, nil); !errors.Is(err, ErrNilList) {
		t.Errorf("Prepare(nil) error = %v, want ErrNilList", err)
	}
	if _, err := ctx.Prepare(3, list); !errors.Is(err, ErrUnknownDisplay) {
		t.Errorf("Prepare(3) error = %v, want ErrUnknownDisplay", err)
	}
	if err := ctx.ConfigDone(); err != nil {
		t.Fatal(err)
	}
}

func TestBlankDropsEverything(t *testing.T) {
	dev := noop.NewDevice()
	ctx := newTestContext(t, testCaps(), dev)
	list := &LayerList{Layers: []Layer{rgbLayer(1, geom.R(0, 0, 100, 100))}}
	prepareFrame(t, ctx, DisplayPrimary, list)
	if len(dev.OpenPipes()) == 0 {
		t.Fatal("no pipe opened before blank")
	}

	if err := ctx.Blank(DisplayPrimary, true); err != nil {
		t.Fatal(err)
	}
	if got := dev.OpenPipes(); len(got) != 0 {
		t.Errorf("open pipes after blank = %v, want none", got)
	}
	a := prepareFrame(t, ctx, DisplayPrimary, list)
	if got := a.Count(CompositionDropped); got != 1 {
		t.Errorf("dropped layers while blank = %d, want 1", got)
	}
	if len(a.Pipes()) != 0 {
		t.Errorf("pipes while blank = %v, want none", a.Pipes())
	}

	if err := ctx.Blank(DisplayPrimary, false); err != nil {
		t.Fatal(err)
	}
	a = prepareFrame(t, ctx, DisplayPrimary, list)
	if a.Strategy != StrategyFullHW {
		t.Errorf("Strategy after unblank = %s, want %s", a.Strategy, StrategyFullHW)
	}
}

func TestDisconnectReleasesPipes(t *testing.T) {
	dev := noop.NewDevice()
	ctx := newTestContext(t, testCaps(), dev)
	if err := ctx.ConnectDisplay(1, DisplayAttributes{Width: 720, Height: 480}); err != nil {
		t.Fatal(err)
	}
	list := &LayerList{Layers: []Layer{rgbLayer(1, geom.R(0, 0, 100, 100))}}
	prepareFrame(t, ctx, 1, list)
	if len(dev.OpenPipes()) == 0 {
		t.Fatal("no pipe opened for display 1")
	}
	if err := ctx.DisconnectDisplay(1); err != nil {
		t.Fatal(err)
	}
	if got := dev.OpenPipes(); len(got) != 0 {
		t.Errorf("open pipes after disconnect = %v, want none", got)
	}
	if ctx.Last(1) != nil {
		t.Error("Last() of a disconnected display is not nil")
	}
}

func TestResetForgetsHistory(t *testing.T) {
	dev := noop.NewDevice()
	ctx := newTestContext(t, testCaps(), dev)
	list := &LayerList{Layers: []Layer{rgbLayer(1, geom.R(0, 0, 100, 100))}}
	prepareFrame(t, ctx, DisplayPrimary, list)

	ctx.Reset()
	if got := dev.OpenPipes(); len(got) != 0 {
		t.Errorf("open pipes after Reset = %v, want none", got)
	}
	if ctx.Last(DisplayPrimary) != nil {
		t.Error("Last() after Reset is not nil")
	}
	if a := prepareFrame(t, ctx, DisplayPrimary, list); a.Strategy != StrategyFullHW {
		t.Errorf("Strategy after Reset = %s, want %s", a.Strategy, StrategyFullHW)
	}
}

func TestDump(t *testing.T) {
	ctx := newTestContext(t, testCaps(), noop.NewDevice())
	list := &LayerList{Layers: []Layer{
		rgbLayer(1, geom.R(0, 0, 100, 100)),
		rgbLayer(2, geom.R(0, 4000, 100, 4100)),
	}}
	prepareFrame(t, ctx, DisplayPrimary, list)

	var buf bytes.Buffer
	if err := ctx.Dump(&buf); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"display 0: 1080x1920", "strategy=full-hw", "overlay", "dropped", "PIPE"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() missing %q:\n%s", want, out)
		}
	}
}

func TestConnectDisplayFramebufferFormat(t *testing.T) {
	ctx := newTestContext(t, testCaps(), noop.NewDevice())
	tests := []struct {
		format  buffer.Format
		wantErr bool
	}{
		{buffer.FormatBGRX8888, false},
		{buffer.FormatRGB565, true},
		{buffer.FormatNV12, true},
	}
	for i, tt := range tests {
		err := ctx.ConnectDisplay(i+1, DisplayAttributes{Width: 720, Height: 480, Format: tt.format})
		var ce *ConfigError
		if got := errors.As(err, &ce); got != tt.wantErr {
			t.Errorf("ConnectDisplay(%s) = %v, want config error %t", tt.format, err, tt.wantErr)
		}
	}
}
