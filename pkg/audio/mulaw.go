// Package audio provides narrowband audio helpers for the telephony boundary:
// G.711 mu-law encode/decode, mono PCM resampling, and a streaming transcoder
// that pins synthesis output to the call leg's fixed mu-law 8 kHz format.
//
// The telephony leg never negotiates formats. A mismatch here does not fail
// loudly — it plays as garbled audio — so conversions are enforced at the
// boundary rather than trusted to upstream services.
package audio

const (
	// mulawBias is the G.711 encoder bias added before segment search.
	mulawBias = 0x84

	// mulawClip is the maximum magnitude representable after biasing.
	mulawClip = 32635
)

// EncodeMulawSample converts one little-endian int16 PCM sample to its G.711
// mu-law byte.
func EncodeMulawSample(sample int16) byte {
	s := int32(sample)

	var sign byte
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := byte(7)
	for mask := int32(0x4000); s&mask == 0 && exponent > 0; exponent-- {
		mask >>= 1
	}
	mantissa := byte(s>>(exponent+3)) & 0x0F

	return ^(sign | exponent<<4 | mantissa)
}

// DecodeMulawSample converts one G.711 mu-law byte back to an int16 PCM sample.
func DecodeMulawSample(u byte) int16 {
	u = ^u
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	s := (int32(mantissa)<<3 + mulawBias) << exponent
	s -= mulawBias

	if u&0x80 != 0 {
		s = -s
	}
	return int16(s)
}

// PCM16ToMulaw converts little-endian int16 mono PCM to mu-law, one byte per
// sample. A trailing odd byte is ignored; callers that stream chunked PCM
// should use [Transcoder], which carries split samples across chunks.
func PCM16ToMulaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = EncodeMulawSample(s)
	}
	return out
}

// MulawToPCM16 expands mu-law bytes to little-endian int16 mono PCM.
func MulawToPCM16(mulaw []byte) []byte {
	out := make([]byte, len(mulaw)*2)
	for i, u := range mulaw {
		s := DecodeMulawSample(u)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
