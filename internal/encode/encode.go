package encode

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// BlockSize is the number of samples handed to Encode per call.
const BlockSize = 1152

// Encoder consumes mono 16-bit PCM in blocks and produces an encoded byte
// stream. The concatenation of every Encode result and the final Flush
// result is the complete output.
type Encoder interface {
	Encode(block []int16) ([]byte, error)
	Flush() ([]byte, error)
}

// PCM16 clamps src to [-1,1], scales by 32767 and writes the result to dst,
// growing it when needed.
func PCM16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		if s > 1 {
			s = 1
		} else if s < -1 || s != s {
			s = -1
		}
		dst[i] = int16(math.Round(float64(s) * 32767))
	}
	return dst
}

// All feeds samples to enc in BlockSize blocks (the last one may be short)
// and returns the collected output including the flush. Cancelling ctx
// stops between blocks without flushing.
func All(ctx context.Context, enc Encoder, samples []float32) ([]byte, error) {
	var out []byte
	block := make([]int16, 0, BlockSize)
	for start := 0; start < len(samples); start += BlockSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+BlockSize, len(samples))
		block = PCM16(block, samples[start:end])
		b, err := enc.Encode(block)
		if err != nil {
			return nil, fmt.Errorf("encode: block at %d: %w", start, err)
		}
		out = append(out, b...)
	}
	b, err := enc.Flush()
	if err != nil {
		return nil, fmt.Errorf("encode: flush: %w", err)
	}
	return append(out, b...), nil
}

// Raw emits headerless little-endian 16-bit PCM as it goes.
type Raw struct{}

func (Raw) Encode(block []int16) ([]byte, error) {
	out := make([]byte, len(block)*2)
	for i, s := range block {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out, nil
}

func (Raw) Flush() ([]byte, error) { return nil, nil }
