// Package transport converts rendered blocks into the sample formats audio
// outputs consume: signed 16-bit PCM, little-endian byte streams and the
// 32-bit stereo words of an I2S DMA buffer.
package transport

import "encoding/binary"

// BytesPerSample is the size of one 16-bit PCM sample.
const BytesPerSample = 2

// FloatToInt16 converts samples in [-1,1] to 16-bit PCM. Out-of-range input
// is clamped. It converts min(len(dst), len(src)) samples and returns that
// count.
func FloatToInt16(dst []int16, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = floatToInt16(src[i])
	}
	return n
}

func floatToInt16(x float32) int16 {
	if x >= 1 {
		return 32767
	}
	if x <= -1 {
		return -32767
	}
	if x != x {
		return 0
	}
	return int16(x * 32767)
}

// PutInt16LE writes samples as little-endian bytes and returns the number of
// bytes written. Only whole samples are written.
func PutInt16LE(dst []byte, src []int16) int {
	n := min(len(dst)/BytesPerSample, len(src))
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(src[i]))
	}
	return n * BytesPerSample
}

// PackStereoWords duplicates each mono sample into both 16-bit halves of a
// 32-bit word, the frame layout of a stereo I2S DMA buffer.
func PackStereoWords(dst []uint32, src []int16) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = uint32(uint16(src[i])) * 0x10001
	}
	return n
}

// InterleaveStereo duplicates mono samples into interleaved L/R frames. dst
// must hold 2*len(src) samples; the number of frames written is returned.
func InterleaveStereo(dst []float32, src []float32) int {
	n := min(len(dst)/2, len(src))
	for i := 0; i < n; i++ {
		dst[2*i] = src[i]
		dst[2*i+1] = src[i]
	}
	return n
}
