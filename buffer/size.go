package buffer

// Alignment constants used by the allocator for display and video buffers.
const (
	pageSize       = 4096
	rgbStrideAlign = 32  // pixels
	rgbHeightAlign = 32  // rows
	ubwcTileAlign  = 64  // pixels
	venusStride    = 128 // bytes
	venusScanlines = 32  // rows
	tiledStride    = 128 // bytes, 64x32 tiles of 2 bytes per pixel pair
	tiledScanlines = 32  // rows
	tiledSlab      = 8192
)

func align(v, a int) int {
	return (v + a - 1) / a * a
}

// Stride returns the aligned row pitch in bytes and the aligned number of luma
// rows for a w x h buffer of format f.
func Stride(w, h int, f Format) (stride, scanlines int) {
	switch {
	case f.IsCompressed() && f.IsYUV():
		return align(w, venusStride), align(h, venusScanlines)
	case f.IsCompressed():
		return align(w, ubwcTileAlign) * f.BytesPerPixel(), align(h, rgbHeightAlign)
	case f == FormatNV12Venus:
		return align(w, venusStride), align(h, venusScanlines)
	case f.IsTiled():
		return align(w, tiledStride), align(h, tiledScanlines)
	case f == FormatYV12:
		return align(w, 16), h
	case f.IsYUV():
		return align(w, 16), align(h, 2)
	default:
		return align(w, rgbStrideAlign) * f.BytesPerPixel(), align(h, rgbHeightAlign)
	}
}

// Size returns the number of bytes the allocator reserves for a w x h buffer
// of format f. Compressed formats carry per-plane metadata and therefore need
// a larger worst-case slab than their linear equivalents.
func Size(w, h int, f Format) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	stride, scan := Stride(w, h, f)
	switch {
	case f.IsCompressed() && f.IsYUV():
		y := align(stride*scan, pageSize)
		uv := align(stride*align(scan/2, 16), pageSize)
		yMeta := align(align((w+31)/32, 64)*align((h+7)/8, 16), pageSize)
		uvMeta := align(align((w/2+15)/16, 64)*align((h/2+7)/8, 16), pageSize)
		return y + uv + yMeta + uvMeta
	case f.IsCompressed():
		data := align(stride*scan, pageSize)
		meta := align(align((w+15)/16, 64)*align((h+3)/4, 16), pageSize)
		return data + meta
	case f.IsTiled():
		y := align(stride*scan, tiledSlab)
		uv := align(stride*align(scan/2, tiledScanlines), tiledSlab)
		return y + uv
	case f == FormatNV12Venus:
		return align(stride*scan+stride*align(scan/2, 16), pageSize)
	case f == FormatYV12:
		cstride := align(stride/2, 16)
		return align(stride*scan+2*cstride*(scan/2), pageSize)
	case f == FormatNV16:
		return align(stride*scan*2, pageSize)
	case f.IsYUV():
		return align(stride*scan*3/2, pageSize)
	default:
		return align(stride*scan, pageSize)
	}
}
