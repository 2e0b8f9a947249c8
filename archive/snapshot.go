package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/hupe1980/seisclust/codec"
	"github.com/hupe1980/seisclust/distmat"
	"github.com/hupe1980/seisclust/membership"
	"github.com/hupe1980/seisclust/params"
	"github.com/hupe1980/seisclust/template"
)

// snapshotExt marks the legacy single-object snapshot form: the whole
// payload encoded by one codec, bypassing the structured directory layout.
const snapshotExt = ".json"

// snapshotEnvelope wraps the encoded payload with the codec that produced
// it, so a snapshot is decodable regardless of the current default.
type snapshotEnvelope struct {
	Codec string `json:"codec"`
	Data  []byte `json:"data"`
}

type snapshotRow struct {
	Name   string         `json:"name"`
	ID     int            `json:"id_no"`
	Groups map[string]int `json:"groups,omitempty"`
}

type snapshotPayload struct {
	Templates []*template.Template      `json:"templates"`
	Methods   []string                  `json:"methods,omitempty"`
	Rows      []snapshotRow             `json:"rows,omitempty"`
	Params    map[string]map[string]any `json:"params,omitempty"`
	// DistMat carries the matrix as little-endian float64 bytes; JSON
	// cannot represent the NaN sentinel directly.
	DistMatSize int    `json:"dist_mat_size,omitempty"`
	DistMat     []byte `json:"dist_mat,omitempty"`
}

// WriteSnapshot writes the payload as a legacy single-object snapshot using
// the given codec (nil selects codec.Default).
func WriteSnapshot(path string, p *Payload, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	sp := &snapshotPayload{Templates: p.Templates}

	if p.Table != nil {
		sp.Methods = p.Table.Methods()
		for _, name := range p.Table.Names() {
			id, _ := p.Table.ID(name)
			row := snapshotRow{Name: name, ID: id, Groups: make(map[string]int, len(sp.Methods))}
			for _, m := range sp.Methods {
				if g, ok := p.Table.Get(name, m); ok {
					row.Groups[m] = g
				}
			}
			sp.Rows = append(sp.Rows, row)
		}
	}
	if p.Params != nil {
		sp.Params = make(map[string]map[string]any, len(p.Params))
		for method, kw := range p.Params {
			sp.Params[method] = map[string]any(kw)
		}
	}
	if p.DistMat != nil {
		sp.DistMatSize = p.DistMat.Size()
		sp.DistMat = matrixBytes(p.DistMat)
	}

	data, err := c.Marshal(sp)
	if err != nil {
		return err
	}
	env, err := json.Marshal(snapshotEnvelope{Codec: c.Name(), Data: data})
	if err != nil {
		return err
	}
	return os.WriteFile(path, env, 0o644)
}

// ReadSnapshot reads a legacy single-object snapshot.
func ReadSnapshot(path string) (*Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("archive: parse snapshot envelope: %w", err)
	}
	c, ok := codec.ByName(env.Codec)
	if !ok {
		return nil, fmt.Errorf("archive: snapshot written by unknown codec %q", env.Codec)
	}
	var sp snapshotPayload
	if err := c.Unmarshal(env.Data, &sp); err != nil {
		return nil, fmt.Errorf("archive: decode snapshot: %w", err)
	}

	p := &Payload{Templates: sp.Templates, Params: make(params.Records)}
	if len(sp.Rows) > 0 {
		table := membership.NewTable()
		assign := make(map[string]map[string]int, len(sp.Methods))
		for _, m := range sp.Methods {
			assign[m] = make(map[string]int)
		}
		for _, row := range sp.Rows {
			if err := table.Add(row.Name, row.ID); err != nil {
				return nil, err
			}
			for m, g := range row.Groups {
				if _, ok := assign[m]; ok {
					assign[m][row.Name] = g
				}
			}
		}
		for _, m := range sp.Methods {
			table.SetColumn(m, assign[m])
		}
		p.Table = table
	}
	for method, kw := range sp.Params {
		p.Params[method] = params.Params(kw)
	}
	if sp.DistMatSize > 0 {
		mat, err := matrixFromBytes(sp.DistMatSize, sp.DistMat)
		if err != nil {
			return nil, err
		}
		p.DistMat = mat
	}
	return p, nil
}

func matrixBytes(m *distmat.Matrix) []byte {
	n := m.Size()
	out := make([]byte, 0, n*n*8)
	var buf [8]byte
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(m.At(i, j)))
			out = append(out, buf[:]...)
		}
	}
	return out
}

func matrixFromBytes(n int, data []byte) (*distmat.Matrix, error) {
	if len(data) != n*n*8 {
		return nil, fmt.Errorf("archive: snapshot matrix has %d bytes, want %d", len(data), n*n*8)
	}
	m := distmat.New(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			bits := binary.LittleEndian.Uint64(data[(i*n+j)*8:])
			m.Set(i, j, math.Float64frombits(bits))
		}
	}
	return m, nil
}
