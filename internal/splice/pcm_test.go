package splice

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// pcmFrames builds an s16le mono buffer holding the given samples
func pcmFrames(t *testing.T, sampleRate int, samples []int16) *Buffer {
	t.Helper()
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return NewBuffer(data, sampleRate, 1)
}

func constSamples(value int16, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = value
	}
	return samples
}

func TestNewBufferTruncatesPartialFrame(t *testing.T) {
	// 7 bytes of stereo s16le is one frame plus three stray bytes
	buf := NewBuffer(make([]byte, 7), 44100, 2)
	if len(buf.Bytes()) != 4 {
		t.Errorf("buffer length = %d bytes, want 4", len(buf.Bytes()))
	}
}

func TestDurationMs(t *testing.T) {
	buf := pcmFrames(t, 1000, constSamples(0, 2500))
	if got := buf.DurationMs(); got != 2500 {
		t.Errorf("DurationMs() = %d, want 2500", got)
	}
}

func TestSliceMs(t *testing.T) {
	// 1kHz mono: one frame per millisecond keeps the math readable
	buf := pcmFrames(t, 1000, constSamples(100, 1000))

	tests := []struct {
		name       string
		start, end int
		wantFrames int
	}{
		{name: "interior range", start: 100, end: 300, wantFrames: 200},
		{name: "full range", start: 0, end: 1000, wantFrames: 1000},
		{name: "end clamped", start: 900, end: 5000, wantFrames: 100},
		{name: "start clamped", start: -50, end: 100, wantFrames: 100},
		{name: "inverted", start: 300, end: 100, wantFrames: 0},
		{name: "out of range", start: 2000, end: 3000, wantFrames: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buf.SliceMs(tt.start, tt.end)
			if got.frames() != tt.wantFrames {
				t.Errorf("SliceMs(%d, %d) = %d frames, want %d", tt.start, tt.end, got.frames(), tt.wantFrames)
			}
		})
	}
}

func TestSliceMsCopies(t *testing.T) {
	buf := pcmFrames(t, 1000, constSamples(100, 10))
	slice := buf.SliceMs(0, 10)
	slice.Bytes()[0] = 0xFF
	if buf.Bytes()[0] == 0xFF {
		t.Error("SliceMs() shares backing storage with the source")
	}
}

func TestAppendCrossfadeHardCut(t *testing.T) {
	a := pcmFrames(t, 1000, constSamples(1000, 100))
	b := pcmFrames(t, 1000, constSamples(-1000, 50))

	a.AppendCrossfade(b, 0)

	if a.frames() != 150 {
		t.Errorf("frames after hard cut = %d, want 150", a.frames())
	}
	if !bytes.Equal(a.Bytes()[100*2:], b.Bytes()) {
		t.Error("appended audio does not match the second buffer")
	}
}

func TestAppendCrossfadeOverlapAccounting(t *testing.T) {
	a := pcmFrames(t, 1000, constSamples(1000, 100))
	b := pcmFrames(t, 1000, constSamples(-1000, 100))

	a.AppendCrossfade(b, 5)

	// The fade consumes 5 frames of overlap: 100 + 100 - 5
	if a.frames() != 195 {
		t.Errorf("frames after crossfade = %d, want 195", a.frames())
	}
}

func TestAppendCrossfadeBlends(t *testing.T) {
	a := pcmFrames(t, 1000, constSamples(1000, 10))
	b := pcmFrames(t, 1000, constSamples(-1000, 10))

	a.AppendCrossfade(b, 4)

	// Within the fade the sample must sit strictly between the two levels
	data := a.Bytes()
	fadeStart := (10 - 4) * 2
	for i := 0; i < 4; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[fadeStart+i*2:]))
		if sample >= 1000 || sample <= -1000 {
			t.Errorf("fade frame %d = %d, want strictly between -1000 and 1000", i, sample)
		}
	}
	// After the fade the tail is pure second-buffer audio
	tail := int16(binary.LittleEndian.Uint16(data[len(data)-2:]))
	if tail != -1000 {
		t.Errorf("final sample = %d, want -1000", tail)
	}
}

func TestAppendCrossfadeClampedToShortBuffer(t *testing.T) {
	a := pcmFrames(t, 1000, constSamples(1000, 3))
	b := pcmFrames(t, 1000, constSamples(-1000, 100))

	// Requested 10ms fade exceeds the 3-frame head; it must clamp, not panic
	a.AppendCrossfade(b, 10)

	if a.frames() != 100 {
		t.Errorf("frames = %d, want 100 (3 + 100 - 3 overlap)", a.frames())
	}
}
