package encode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrClosed = errors.New("encode: encoder already flushed")

// WAV writes 16-bit mono RIFF/WAVE. The header carries sizes that are only
// known at the end, so Encode returns nothing and Flush returns the whole
// file.
type WAV struct {
	sampleRate int
	out        *memFile
	enc        *wav.Encoder
	buf        *audio.IntBuffer
	closed     bool
}

func NewWAV(sampleRate int) *WAV {
	out := &memFile{}
	return &WAV{
		sampleRate: sampleRate,
		out:        out,
		enc:        wav.NewEncoder(out, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

func (w *WAV) Encode(block []int16) ([]byte, error) {
	if w.closed {
		return nil, ErrClosed
	}
	if cap(w.buf.Data) < len(block) {
		w.buf.Data = make([]int, len(block))
	}
	w.buf.Data = w.buf.Data[:len(block)]
	for i, s := range block {
		w.buf.Data[i] = int(s)
	}
	if err := w.enc.Write(w.buf); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return nil, nil
}

func (w *WAV) Flush() ([]byte, error) {
	if w.closed {
		return nil, ErrClosed
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return w.out.data, nil
}

// WriteWAV encodes samples straight to a seekable destination such as a file.
func WriteWAV(ws io.WriteSeeker, sampleRate int, samples []float32) error {
	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	pcm := PCM16(nil, samples)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(pcm)),
		SourceBitDepth: 16,
	}
	for i, s := range pcm {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}

// memFile is an in-memory io.WriteSeeker.
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	n := copy(m.data[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.data)
	default:
		return 0, fmt.Errorf("memfile: bad whence %d", whence)
	}
	pos := base + int(offset)
	if pos < 0 {
		return 0, fmt.Errorf("memfile: negative position %d", pos)
	}
	m.pos = pos
	return int64(pos), nil
}
