// Package buffer describes the buffers exchanged with the external allocator:
// pixel formats and their layout classes, descriptor and usage flags, and the
// size and alignment rules used when the composition engine asks for scratch
// buffers of its own (rotator output rings, overlap render buffers).
package buffer
