package audio

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. The input must be little-endian int16 samples. If
// srcRate == dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}

// Transcoder converts a chunked stream of little-endian int16 mono PCM at
// srcRate into mu-law 8 kHz bytes for the telephony leg. Chunk boundaries from
// an HTTP or websocket stream may split a sample in half; the transcoder
// carries the dangling byte into the next chunk so no sample is dropped.
//
// Create one per synthesis stream; not safe for shared use across goroutines.
type Transcoder struct {
	srcRate int
	carry   []byte
}

// NewTranscoder creates a Transcoder for int16 PCM input at srcRate Hz.
func NewTranscoder(srcRate int) *Transcoder {
	return &Transcoder{srcRate: srcRate}
}

// Transcode converts the next PCM chunk to mu-law 8 kHz. The returned slice
// may be empty when the chunk (plus any carried byte) contains less than one
// full sample.
func (t *Transcoder) Transcode(chunk []byte) []byte {
	if len(t.carry) > 0 {
		chunk = append(t.carry, chunk...)
		t.carry = nil
	}
	if len(chunk)%2 != 0 {
		t.carry = []byte{chunk[len(chunk)-1]}
		chunk = chunk[:len(chunk)-1]
	}
	if len(chunk) == 0 {
		return nil
	}
	if t.srcRate != 8000 {
		chunk = ResampleMono16(chunk, t.srcRate, 8000)
	}
	return PCM16ToMulaw(chunk)
}
