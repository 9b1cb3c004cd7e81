package rabbitmq

import (
	"fmt"

	"github.com/glimte/mmate-mfp/internal/wire"
)

// binaryOverhead covers one length prefix for bodies up to 2 MiB
const binaryOverhead = 3

// Frame packs slices into one AMQP body: a slice count followed by each
// slice with its length.
func Frame(slices [][]byte) []byte {
	size := binaryOverhead
	for _, s := range slices {
		size += len(s) + binaryOverhead
	}

	w := wire.NewWriter(size)
	w.PutUvarint(uint64(len(slices)))
	for _, s := range slices {
		w.PutBytes(s)
	}
	return w.Bytes()
}

// Unframe reverses Frame. The returned slices do not alias body.
func Unframe(body []byte) ([][]byte, error) {
	r := wire.NewReader(body)
	n := r.Count(1)
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, r.Err())
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no slices", ErrInvalidFrame)
	}

	slices := make([][]byte, n)
	for i := range slices {
		slices[i] = r.Bytes()
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if r.Remaining() > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFrame, r.Remaining())
	}
	return slices, nil
}
