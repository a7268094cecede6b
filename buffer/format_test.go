package buffer

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestFormatClass(t *testing.T) {
	tests := []struct {
		f     Format
		class Class
		yuv   bool
	}{
		{FormatRGBA8888, ClassRGB, false},
		{FormatRGB565, ClassRGB, false},
		{FormatNV12, ClassYUVSemiPlanar, true},
		{FormatNV21, ClassYUVSemiPlanar, true},
		{FormatNV12UBWC, ClassYUVSemiPlanar, true},
		{FormatYV12, ClassYUVPlanar, true},
	}
	for _, tt := range tests {
		if got := tt.f.Class(); got != tt.class {
			t.Errorf("%v.Class() = %v, want %v", tt.f, got, tt.class)
		}
		if got := tt.f.IsYUV(); got != tt.yuv {
			t.Errorf("%v.IsYUV() = %v, want %v", tt.f, got, tt.yuv)
		}
	}
}

func TestFormatTextureFormat(t *testing.T) {
	if got := FormatRGBA8888.TextureFormat(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("RGBA_8888.TextureFormat() = %v, want RGBA8Unorm", got)
	}
	if got := FormatBGRA8888.TextureFormat(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("BGRA_8888.TextureFormat() = %v, want BGRA8Unorm", got)
	}
	if got := FormatNV12.TextureFormat(); got != gputypes.TextureFormatUndefined {
		t.Errorf("NV12.TextureFormat() = %v, want Undefined", got)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range knownFormats {
		got, err := ParseFormat(f.String())
		if err != nil {
			t.Fatalf("ParseFormat(%q) error = %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFormat(%q) = %v, want %v", f.String(), got, f)
		}
	}
	if _, err := ParseFormat("RGBA_1010102"); err == nil {
		t.Error("ParseFormat() of unknown name should fail")
	}
}

func TestLinear(t *testing.T) {
	if got := FormatNV12Tiled.Linear(); got != FormatNV12 {
		t.Errorf("NV12_TILED.Linear() = %v, want NV12", got)
	}
	if got := FormatRGBA8888UBWC.Linear(); got != FormatRGBA8888 {
		t.Errorf("RGBA_8888_UBWC.Linear() = %v, want RGBA_8888", got)
	}
	if got := FormatRGB565.Linear(); got != FormatRGB565 {
		t.Errorf("RGB_565.Linear() = %v, want RGB_565", got)
	}
}

func TestFormatCompressed(t *testing.T) {
	tests := []struct {
		in, want Format
	}{
		{FormatNV12, FormatNV12UBWC},
		{FormatNV21, FormatNV12UBWC},
		{FormatRGBA8888, FormatRGBA8888UBWC},
		{FormatRGB565, FormatRGB565},
		{FormatYV12, FormatYV12},
	}
	for _, tt := range tests {
		if got := tt.in.Compressed(); got != tt.want {
			t.Errorf("%v.Compressed() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
