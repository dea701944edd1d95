package splice

// Buffer holds interleaved signed 16-bit little-endian PCM, the format
// ffmpeg decodes to over its stdout pipe.
type Buffer struct {
	data       []byte
	sampleRate int
	channels   int
}

// NewBuffer wraps raw s16le PCM bytes. Trailing bytes that do not fill a
// whole frame are dropped.
func NewBuffer(data []byte, sampleRate, channels int) *Buffer {
	b := &Buffer{sampleRate: sampleRate, channels: channels}
	frame := b.bytesPerFrame()
	b.data = data[:len(data)-len(data)%frame]
	return b
}

func (b *Buffer) bytesPerFrame() int {
	return b.channels * 2
}

func (b *Buffer) frames() int {
	return len(b.data) / b.bytesPerFrame()
}

func (b *Buffer) framesForMs(ms int) int {
	return ms * b.sampleRate / 1000
}

// DurationMs returns the buffer length in milliseconds
func (b *Buffer) DurationMs() int {
	if b.sampleRate == 0 {
		return 0
	}
	return b.frames() * 1000 / b.sampleRate
}

// Bytes returns the raw PCM data
func (b *Buffer) Bytes() []byte {
	return b.data
}

// SliceMs extracts the [startMs, endMs) range as a new buffer. The range
// is clamped to the buffer bounds; an inverted or out-of-range request
// yields an empty buffer.
func (b *Buffer) SliceMs(startMs, endMs int) *Buffer {
	frame := b.bytesPerFrame()
	start := b.framesForMs(startMs)
	end := b.framesForMs(endMs)

	total := b.frames()
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start >= end {
		return &Buffer{sampleRate: b.sampleRate, channels: b.channels}
	}

	out := make([]byte, (end-start)*frame)
	copy(out, b.data[start*frame:end*frame])
	return &Buffer{data: out, sampleRate: b.sampleRate, channels: b.channels}
}

// AppendCrossfade appends next onto b with a linear crossfade over
// crossfadeMs. The fade consumes overlap from both sides, so the result
// is always at most len(b)+len(next) and the total can only shrink.
// A non-positive crossfade is a hard cut.
func (b *Buffer) AppendCrossfade(next *Buffer, crossfadeMs int) {
	fadeFrames := 0
	if crossfadeMs > 0 {
		fadeFrames = b.framesForMs(crossfadeMs)
	}
	if fadeFrames > b.frames() {
		fadeFrames = b.frames()
	}
	if fadeFrames > next.frames() {
		fadeFrames = next.frames()
	}

	if fadeFrames <= 0 {
		b.data = append(b.data, next.data...)
		return
	}

	frame := b.bytesPerFrame()
	tailOff := len(b.data) - fadeFrames*frame

	for i := 0; i < fadeFrames; i++ {
		gain := float64(i+1) / float64(fadeFrames+1)
		for ch := 0; ch < b.channels; ch++ {
			off := i*frame + ch*2
			tail := int16(uint16(b.data[tailOff+off]) | uint16(b.data[tailOff+off+1])<<8)
			head := int16(uint16(next.data[off]) | uint16(next.data[off+1])<<8)
			mixed := float64(tail)*(1-gain) + float64(head)*gain
			sample := int16(mixed)
			b.data[tailOff+off] = byte(uint16(sample))
			b.data[tailOff+off+1] = byte(uint16(sample) >> 8)
		}
	}

	b.data = append(b.data, next.data[fadeFrames*frame:]...)
}
