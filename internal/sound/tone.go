package sound

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// Tone is a sine beep with a linear attack and a linear release to silence.
type Tone struct {
	Frequency  float64
	Duration   time.Duration
	Peak       float64
	Attack     time.Duration
	SampleRate int
}

// AlertTone is the completion beep: 880 Hz for half a second.
var AlertTone = Tone{
	Frequency:  880,
	Duration:   500 * time.Millisecond,
	Peak:       0.5,
	Attack:     10 * time.Millisecond,
	SampleRate: 44100,
}

// Gain returns the envelope at offset t.
func (t Tone) Gain(at time.Duration) float64 {
	switch {
	case at <= 0 || at >= t.Duration:
		return 0
	case at < t.Attack:
		return t.Peak * float64(at) / float64(t.Attack)
	default:
		return t.Peak * float64(t.Duration-at) / float64(t.Duration-t.Attack)
	}
}

// Samples renders the tone as signed 16-bit mono PCM.
func (t Tone) Samples() []int16 {
	n := int(t.Duration.Seconds() * float64(t.SampleRate))
	out := make([]int16, n)
	for i := range out {
		at := time.Duration(float64(i) / float64(t.SampleRate) * float64(time.Second))
		v := t.Gain(at) * math.Sin(2*math.Pi*t.Frequency*float64(i)/float64(t.SampleRate))
		out[i] = int16(v * math.MaxInt16)
	}
	return out
}

// WAV encodes the tone as a RIFF/WAVE file.
func (t Tone) WAV() []byte {
	samples := t.Samples()
	dataLen := uint32(len(samples) * 2)
	var buf bytes.Buffer
	buf.Grow(44 + int(dataLen))

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, 1, uint32(t.SampleRate), uint32(t.SampleRate * 2), 2, 16})

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
