package buffer

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Format is a pixel format code as handed over by the buffer allocator.
type Format uint32

// Pixel formats understood by the allocator.
const (
	FormatRGBA8888 Format = 0x1
	FormatRGBX8888 Format = 0x2
	FormatRGB888   Format = 0x3
	FormatRGB565   Format = 0x4
	FormatBGRA8888 Format = 0x5
	FormatBGRX8888 Format = 0x112

	FormatNV16 Format = 0x10       // YCbCr 4:2:2 semi-planar
	FormatNV21 Format = 0x11       // YCrCb 4:2:0 semi-planar
	FormatYV12 Format = 0x32315659 // YCrCb 4:2:0 planar
	FormatNV12 Format = 0x109      // YCbCr 4:2:0 semi-planar

	FormatNV12Tiled Format = 0x7FA30C03 // 64x32 macro-tiled NV12
	FormatNV12Venus Format = 0x7FA30C04 // NV12 with video-core alignment
	FormatNV12UBWC  Format = 0x7FA30C06 // bandwidth-compressed NV12

	FormatRGBA8888UBWC Format = 0x7FA30C10 // bandwidth-compressed RGBA
)

// Class groups formats by memory layout.
type Class int

const (
	// ClassRGB is any packed RGB format.
	ClassRGB Class = iota

	// ClassYUVSemiPlanar has a luma plane and one interleaved chroma plane.
	ClassYUVSemiPlanar

	// ClassYUVPlanar has one luma and two separate chroma planes.
	ClassYUVPlanar
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassRGB:
		return "RGB"
	case ClassYUVSemiPlanar:
		return "YUV-SP"
	case ClassYUVPlanar:
		return "YUV-P"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Class returns the memory layout class of f.
func (f Format) Class() Class {
	switch f {
	case FormatYV12:
		return ClassYUVPlanar
	case FormatNV12, FormatNV21, FormatNV16, FormatNV12Tiled, FormatNV12Venus, FormatNV12UBWC:
		return ClassYUVSemiPlanar
	default:
		return ClassRGB
	}
}

// IsYUV reports whether f carries luma/chroma planes.
func (f Format) IsYUV() bool { return f.Class() != ClassRGB }

// IsCompressed reports whether f is a bandwidth-compressed layout.
func (f Format) IsCompressed() bool {
	return f == FormatNV12UBWC || f == FormatRGBA8888UBWC
}

// IsTiled reports whether f is macro-tiled.
func (f Format) IsTiled() bool { return f == FormatNV12Tiled }

// HasAlpha reports whether f carries an alpha channel.
func (f Format) HasAlpha() bool {
	switch f {
	case FormatRGBA8888, FormatBGRA8888, FormatRGBA8888UBWC:
		return true
	default:
		return false
	}
}

// BytesPerPixel returns the packed pixel size of an RGB format, or 1 for the
// luma plane of YUV formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatRGBX8888, FormatBGRA8888, FormatBGRX8888, FormatRGBA8888UBWC:
		return 4
	case FormatRGB888:
		return 3
	case FormatRGB565:
		return 2
	default:
		return 1
	}
}

// Linear returns the uncompressed, untiled equivalent of f.
func (f Format) Linear() Format {
	switch f {
	case FormatNV12Tiled, FormatNV12UBWC, FormatNV12Venus:
		return FormatNV12
	case FormatRGBA8888UBWC:
		return FormatRGBA8888
	default:
		return f
	}
}

// Compressed returns the bandwidth-compressed equivalent of f, or f when no
// compressed layout exists.
func (f Format) Compressed() Format {
	switch f {
	case FormatNV12, FormatNV21, FormatNV12Venus, FormatNV12Tiled, FormatNV12UBWC:
		return FormatNV12UBWC
	case FormatRGBA8888, FormatRGBX8888, FormatRGBA8888UBWC:
		return FormatRGBA8888UBWC
	default:
		return f
	}
}

// TextureFormat returns the GPU texture format matching an RGB format, or
// gputypes.TextureFormatUndefined when the GPU path cannot sample f directly.
func (f Format) TextureFormat() gputypes.TextureFormat {
	switch f {
	case FormatRGBA8888, FormatRGBX8888:
		return gputypes.TextureFormatRGBA8Unorm
	case FormatBGRA8888, FormatBGRX8888:
		return gputypes.TextureFormatBGRA8Unorm
	default:
		return gputypes.TextureFormatUndefined
	}
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA_8888"
	case FormatRGBX8888:
		return "RGBX_8888"
	case FormatRGB888:
		return "RGB_888"
	case FormatRGB565:
		return "RGB_565"
	case FormatBGRA8888:
		return "BGRA_8888"
	case FormatBGRX8888:
		return "BGRX_8888"
	case FormatNV16:
		return "NV16"
	case FormatNV21:
		return "NV21"
	case FormatYV12:
		return "YV12"
	case FormatNV12:
		return "NV12"
	case FormatNV12Tiled:
		return "NV12_TILED"
	case FormatNV12Venus:
		return "NV12_VENUS"
	case FormatNV12UBWC:
		return "NV12_UBWC"
	case FormatRGBA8888UBWC:
		return "RGBA_8888_UBWC"
	default:
		return fmt.Sprintf("Format(%#x)", uint32(f))
	}
}

// ParseFormat returns the format with the given name as printed by String.
func ParseFormat(name string) (Format, error) {
	for _, f := range knownFormats {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("buffer: unknown format %q", name)
}

var knownFormats = []Format{
	FormatRGBA8888, FormatRGBX8888, FormatRGB888, FormatRGB565, FormatBGRA8888,
	FormatBGRX8888, FormatNV16, FormatNV21, FormatYV12, FormatNV12,
	FormatNV12Tiled, FormatNV12Venus, FormatNV12UBWC, FormatRGBA8888UBWC,
}
