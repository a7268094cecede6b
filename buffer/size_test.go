package buffer

import "testing"

func TestSizeRGB(t *testing.T) {
	// 1080 is not a multiple of 32; stride pads to 1088 pixels.
	got := Size(1080, 1920, FormatRGBA8888)
	want := align(1088*4*1920, pageSize)
	if got != want {
		t.Errorf("Size(1080, 1920, RGBA_8888) = %d, want %d", got, want)
	}
}

func TestSizeNV12(t *testing.T) {
	got := Size(1920, 1080, FormatNV12)
	want := align(1920*1080*3/2, pageSize)
	if got != want {
		t.Errorf("Size(1920, 1080, NV12) = %d, want %d", got, want)
	}
}

func TestSizeCompressedIsLarger(t *testing.T) {
	dims := [][2]int{{1920, 1080}, {1280, 720}, {3840, 2160}, {100, 100}}
	for _, d := range dims {
		if Size(d[0], d[1], FormatNV12UBWC) <= Size(d[0], d[1], FormatNV12) {
			t.Errorf("%dx%d: NV12_UBWC slab not larger than NV12", d[0], d[1])
		}
		if Size(d[0], d[1], FormatRGBA8888UBWC) <= Size(d[0], d[1], FormatRGBA8888) {
			t.Errorf("%dx%d: RGBA_8888_UBWC slab not larger than RGBA_8888", d[0], d[1])
		}
	}
}

func TestSizePageAligned(t *testing.T) {
	for _, f := range knownFormats {
		if s := Size(333, 77, f); s%pageSize != 0 || s == 0 {
			t.Errorf("Size(333, 77, %v) = %d, want non-zero page multiple", f, s)
		}
	}
	if s := Size(0, 10, FormatRGBA8888); s != 0 {
		t.Errorf("Size(0, 10) = %d, want 0", s)
	}
}
