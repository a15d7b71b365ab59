/*package compress contains the deterministic random number generator used to
create synthetic particle sources and the codec used to compress particle
datasets on disk.*/
package compress

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/DataDog/zstd"
)

// Codec compresses arrays of float64s. Each float is split into its eight
// bytes and every byte column is compressed as a separate zstd block, which
// lets the high-significance bytes (signs, exponents) compress to almost
// nothing. A Codec holds internal buffers and is not thread safe.
type Codec struct {
	// Level is the zstd compression level.
	Level int
	b, buf []byte
}

// NewCodec creates a codec with the given zstd compression level.
func NewCodec(level int) *Codec {
	return &Codec{Level: level}
}

// Encode writes a compressed version of x to wr. The length of x isn't
// stored, so the reader must know it ahead of time.
func (c *Codec) Encode(x []float64, wr io.Writer) error {
	c.b = resizeBytes(c.b, len(x))

	for col := 0; col < 8; col++ {
		floatToByte(x, c.b, col)

		var err error
		c.buf, err = zstd.CompressLevel(c.buf[:cap(c.buf)], c.b, c.Level)
		if err != nil {
			return err
		}

		err = binary.Write(wr, binary.LittleEndian, int64(len(c.buf)))
		if err != nil {
			return err
		}
		if _, err = wr.Write(c.buf); err != nil {
			return err
		}
	}

	return nil
}

// Decode reads len(x) compressed floats from rd into x.
func (c *Codec) Decode(rd io.Reader, x []float64) error {
	for i := range x {
		x[i] = 0
	}

	for col := 0; col < 8; col++ {
		nBuf := int64(0)
		err := binary.Read(rd, binary.LittleEndian, &nBuf)
		if err != nil {
			return err
		}
		if nBuf < 0 {
			return fmt.Errorf("Compressed block has negative length %d.", nBuf)
		}

		c.buf = resizeBytes(c.buf, int(nBuf))
		if _, err = io.ReadFull(rd, c.buf); err != nil {
			return err
		}

		c.b, err = zstd.Decompress(c.b[:cap(c.b)], c.buf)
		if err != nil {
			return err
		}
		if len(c.b) != len(x) {
			return fmt.Errorf("Compressed block decodes to %d bytes, but "+
				"%d were expected.", len(c.b), len(x))
		}

		byteToFloat(c.b, x, col)
	}

	return nil
}

func floatToByte(x []float64, b []byte, col int) {
	shift := uint(8 * col)
	for i := range x {
		b[i] = byte(math.Float64bits(x[i]) >> shift)
	}
}

func byteToFloat(b []byte, x []float64, col int) {
	shift := uint(8 * col)
	for i := range x {
		bits := math.Float64bits(x[i]) | uint64(b[i])<<shift
		x[i] = math.Float64frombits(bits)
	}
}

func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	return make([]byte, n)
}
