package snapio

/* This file contains the .par particle file format. A .par file starts with a
header listing each dataset, its width, and the byte ranges of its chunks.
Each chunk holds up to ChunkSize rows and is compressed with compress.Codec,
so reading a range of rows only decodes the chunks which overlap it. */

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/phil-mansfield/amrpar/lib/compress"
)

const (
	// MagicNumber is the first four bytes of every .par file.
	MagicNumber = 0xa3c9e4f1
	// ReverseMagicNumber is what MagicNumber looks like when read with the
	// wrong byte order.
	ReverseMagicNumber = 0xf1e4c9a3
	// Version is the newest file version this code can read.
	Version = 1
	// DefaultChunkSize is the number of rows in each chunk.
	DefaultChunkSize = 1 << 16

	zstdLevel = 1
)

type datasetInfo struct {
	name    string
	width   int
	offsets []int64
	sizes   []int64
}

// File is a Reader for .par files. It is not thread safe.
type File struct {
	fname     string
	f         *os.File
	order     binary.ByteOrder
	n         int
	chunkSize int
	datasets  map[string]*datasetInfo

	codec *compress.Codec
	// The most recently decoded chunk.
	cacheName  string
	cacheChunk int
	cache      []float64
}

var _ Reader = &File{}

// Open opens a .par file and reads its header.
func Open(fname string) (*File, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}

	file := &File{
		fname: fname, f: f, datasets: map[string]*datasetInfo{},
		codec: compress.NewCodec(zstdLevel), cacheChunk: -1,
	}
	if err = file.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

// checkFile reads in the file's magic number and version number and makes
// sure that amrpar can actually read it. If it can, the byte order is
// returned.
func checkFile(fname string, rd io.Reader) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(rd, order, &magicNumber); err != nil {
		return nil, fmt.Errorf("Could not read the header of %s: %s",
			fname, err.Error())
	}

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s is not a .par file. All .par files "+
			"begin with either the 32-bit integer %x or %x. This file "+
			"begins with %x.", fname, MagicNumber, ReverseMagicNumber,
			magicNumber)
	}

	if err := binary.Read(rd, order, &version); err != nil {
		return nil, err
	}
	if version > Version {
		return nil, fmt.Errorf("The file %s was written with format version "+
			"%d, but this version of amrpar can only read versions up to %d.",
			fname, version, Version)
	}

	return order, nil
}

func (f *File) readHeader() error {
	rd := io.NewSectionReader(f.f, 0, 1<<62)
	order, err := checkFile(f.fname, rd)
	if err != nil {
		return err
	}
	f.order = order

	var n, chunkSize, nDataset int64
	for _, x := range []*int64{&n, &chunkSize, &nDataset} {
		if err = binary.Read(rd, order, x); err != nil {
			return err
		}
	}
	if n < 0 || chunkSize <= 0 || nDataset < 0 {
		return fmt.Errorf("The header of %s is corrupted: N = %d, "+
			"ChunkSize = %d, NDataset = %d.", f.fname, n, chunkSize, nDataset)
	}
	f.n, f.chunkSize = int(n), int(chunkSize)

	nChunk := f.nChunk()
	for i := int64(0); i < nDataset; i++ {
		var nameLen, width int64
		if err = binary.Read(rd, order, &nameLen); err != nil {
			return err
		}
		if nameLen <= 0 || nameLen > 1<<10 {
			return fmt.Errorf("The header of %s is corrupted: dataset %d "+
				"has a name of length %d.", f.fname, i, nameLen)
		}
		name := make([]byte, nameLen)
		if _, err = io.ReadFull(rd, name); err != nil {
			return err
		}
		if err = binary.Read(rd, order, &width); err != nil {
			return err
		}

		ds := &datasetInfo{
			name: string(name), width: int(width),
			offsets: make([]int64, nChunk), sizes: make([]int64, nChunk),
		}
		if err = binary.Read(rd, order, ds.offsets); err != nil {
			return err
		}
		if err = binary.Read(rd, order, ds.sizes); err != nil {
			return err
		}
		f.datasets[ds.name] = ds
	}

	return nil
}

func (f *File) nChunk() int {
	return (f.n + f.chunkSize - 1) / f.chunkSize
}

func (f *File) Len() int { return f.n }

func (f *File) Width(name string) (int, bool) {
	ds, ok := f.datasets[name]
	if !ok {
		return 0, false
	}
	return ds.width, true
}

func (f *File) ReadFloat64s(
	name string, offset, n, width int, buf []float64,
) ([]float64, error) {
	ds, ok := f.datasets[name]
	if !ok {
		return buf, fmt.Errorf("The file %s does not contain the dataset "+
			"'%s'.", f.fname, name)
	}
	if err := checkSlab(name, offset, n, width, f.n, ds.width); err != nil {
		return buf, err
	}

	buf = resizeFloat64s(buf, n*width)
	if n == 0 {
		return buf, nil
	}

	first, last := offset/f.chunkSize, (offset+n-1)/f.chunkSize
	for c := first; c <= last; c++ {
		chunk, err := f.readChunk(ds, c)
		if err != nil {
			return buf, err
		}

		// Overlap between the chunk and the requested rows.
		start, end := c*f.chunkSize, (c+1)*f.chunkSize
		if start < offset {
			start = offset
		}
		if end > offset+n {
			end = offset + n
		}
		copy(buf[(start-offset)*width:(end-offset)*width],
			chunk[(start-c*f.chunkSize)*width:(end-c*f.chunkSize)*width])
	}

	return buf, nil
}

func (f *File) readChunk(ds *datasetInfo, c int) ([]float64, error) {
	if f.cacheName == ds.name && f.cacheChunk == c {
		return f.cache, nil
	}

	rows := f.chunkSize
	if (c+1)*f.chunkSize > f.n {
		rows = f.n - c*f.chunkSize
	}
	f.cache = resizeFloat64s(f.cache, rows*ds.width)
	rd := io.NewSectionReader(f.f, ds.offsets[c], ds.sizes[c])
	if err := f.codec.Decode(rd, f.cache); err != nil {
		f.cacheChunk = -1
		return nil, fmt.Errorf("Could not decode chunk %d of dataset '%s' "+
			"in %s: %s", c, ds.name, f.fname, err.Error())
	}
	f.cacheName, f.cacheChunk = ds.name, c

	return f.cache, nil
}

func (f *File) Close() error { return f.f.Close() }

// Writer creates .par files. Datasets are added one at a time and the file
// is written by Close.
type Writer struct {
	fname     string
	n         int
	chunkSize int
	order     binary.ByteOrder
	codec     *compress.Codec

	infos  []*datasetInfo
	chunks [][]byte
}

// NewWriter creates a Writer for a file with n rows per dataset. If
// chunkSize is non-positive, DefaultChunkSize is used.
func NewWriter(fname string, n, chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Writer{
		fname: fname, n: n, chunkSize: chunkSize,
		order: binary.LittleEndian, codec: compress.NewCodec(zstdLevel),
	}
}

// SetOrder sets the byte order of the header. This is mainly used by tests.
func (wr *Writer) SetOrder(order binary.ByteOrder) { wr.order = order }

// Add compresses and stages a dataset. len(x) must be n*width.
func (wr *Writer) Add(name string, width int, x []float64) error {
	if width <= 0 {
		return fmt.Errorf("Dataset '%s' given non-positive width %d.",
			name, width)
	} else if len(x) != wr.n*width {
		return fmt.Errorf("Dataset '%s' has %d values, but %d rows of "+
			"width %d were expected.", name, len(x), wr.n, width)
	} else if len(name) == 0 {
		return fmt.Errorf("Datasets must have non-empty names.")
	}
	for _, info := range wr.infos {
		if info.name == name {
			return fmt.Errorf("The dataset '%s' was added twice.", name)
		}
	}

	nChunk := (wr.n + wr.chunkSize - 1) / wr.chunkSize
	info := &datasetInfo{
		name: name, width: width,
		offsets: make([]int64, nChunk), sizes: make([]int64, nChunk),
	}
	for c := 0; c < nChunk; c++ {
		start, end := c*wr.chunkSize, (c+1)*wr.chunkSize
		if end > wr.n {
			end = wr.n
		}

		b := &bytes.Buffer{}
		if err := wr.codec.Encode(x[start*width:end*width], b); err != nil {
			return err
		}
		info.sizes[c] = int64(b.Len())
		wr.chunks = append(wr.chunks, b.Bytes())
	}
	wr.infos = append(wr.infos, info)

	return nil
}

// Close writes the header and every staged chunk to disk.
func (wr *Writer) Close() error {
	headerSize := int64(4 + 4 + 3*8)
	for _, info := range wr.infos {
		headerSize += 8 + int64(len(info.name)) + 8 + 16*int64(len(info.sizes))
	}

	offset := headerSize
	for _, info := range wr.infos {
		for c := range info.sizes {
			info.offsets[c] = offset
			offset += info.sizes[c]
		}
	}

	out := &bytes.Buffer{}
	fields := []interface{}{
		uint32(MagicNumber), uint32(Version),
		int64(wr.n), int64(wr.chunkSize), int64(len(wr.infos)),
	}
	for _, info := range wr.infos {
		fields = append(fields, int64(len(info.name)), []byte(info.name),
			int64(info.width), info.offsets, info.sizes)
	}
	for _, x := range fields {
		if err := binary.Write(out, wr.order, x); err != nil {
			return err
		}
	}
	if int64(out.Len()) != headerSize {
		panic(fmt.Sprintf("Internal error: .par header is %d bytes, but "+
			"%d bytes were expected.", out.Len(), headerSize))
	}

	f, err := os.Create(wr.fname)
	if err != nil {
		return err
	}
	if _, err = f.Write(out.Bytes()); err != nil {
		f.Close()
		return err
	}
	for _, chunk := range wr.chunks {
		if _, err = f.Write(chunk); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
