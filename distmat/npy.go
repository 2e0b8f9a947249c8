package distmat

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
)

// The distance matrix file in an archive is a NumPy .npy v1.0 array of
// float64 ("<f8", C order). Writing the real format keeps archives readable
// by the wider tooling that already consumes dist_mat.npy files.

var npyMagic = []byte("\x93NUMPY")

var (
	ErrInvalidNPYMagic = errors.New("distmat: invalid npy magic")
	ErrUnsupportedNPY  = errors.New("distmat: unsupported npy layout")
)

var npyShapeRe = regexp.MustCompile(`'shape':\s*\((\d+),\s*(\d+),?\)`)

// WriteNPY writes the matrix as a .npy v1.0 float64 array.
func (m *Matrix) WriteNPY(dst io.Writer) error {
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", m.n, m.n)
	// Total header (magic + version + length field + dict + padding + \n)
	// must be a multiple of 64 bytes.
	total := len(npyMagic) + 2 + 2 + len(header) + 1
	pad := (64 - total%64) % 64
	padded := header + string(bytes.Repeat([]byte{' '}, pad)) + "\n"

	bw := bufio.NewWriter(dst)
	if _, err := bw.Write(npyMagic); err != nil {
		return err
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil { // version 1.0
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(padded))); err != nil {
		return err
	}
	if _, err := bw.WriteString(padded); err != nil {
		return err
	}
	for _, v := range m.data {
		if err := binary.Write(bw, binary.LittleEndian, math.Float64bits(v)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadNPY reads a square float64 .npy array written by WriteNPY (or by any
// producer of C-ordered "<f8" v1.x arrays).
func ReadNPY(src io.Reader) (*Matrix, error) {
	br := bufio.NewReader(src)

	magic := make([]byte, len(npyMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, npyMagic) {
		return nil, ErrInvalidNPYMagic
	}
	version := make([]byte, 2)
	if _, err := io.ReadFull(br, version); err != nil {
		return nil, err
	}
	if version[0] != 1 {
		return nil, fmt.Errorf("%w: version %d.%d", ErrUnsupportedNPY, version[0], version[1])
	}
	var headerLen uint16
	if err := binary.Read(br, binary.LittleEndian, &headerLen); err != nil {
		return nil, err
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, err
	}
	h := string(header)
	if !bytes.Contains(header, []byte("'<f8'")) {
		return nil, fmt.Errorf("%w: dtype is not <f8", ErrUnsupportedNPY)
	}
	if bytes.Contains(header, []byte("'fortran_order': True")) {
		return nil, fmt.Errorf("%w: fortran order", ErrUnsupportedNPY)
	}
	shape := npyShapeRe.FindStringSubmatch(h)
	if shape == nil {
		return nil, fmt.Errorf("%w: shape is not 2-d", ErrUnsupportedNPY)
	}
	rows, err := strconv.Atoi(shape[1])
	if err != nil {
		return nil, err
	}
	cols, err := strconv.Atoi(shape[2])
	if err != nil {
		return nil, err
	}
	if rows != cols {
		return nil, fmt.Errorf("%w: shape (%d, %d) is not square", ErrUnsupportedNPY, rows, cols)
	}

	data := make([]float64, rows*cols)
	for i := range data {
		var bits uint64
		if err := binary.Read(br, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		data[i] = math.Float64frombits(bits)
	}
	return fromFlat(rows, data)
}
