package testutils

import "io"

// ChunkReader returns its data in reads of at most size bytes, which makes
// chunk boundaries in tests explicit.
type ChunkReader struct {
	data []byte
	size int
}

// NewChunkReader returns a ChunkReader over data. A size of zero or less
// returns everything in a single read.
func NewChunkReader(data []byte, size int) *ChunkReader {
	if size <= 0 {
		size = max(len(data), 1)
	}
	return &ChunkReader{data: data, size: size}
}

func (c *ChunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := min(c.size, len(p), len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}
