package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/graph"
)

type nodeRecord struct {
	HasPot bool
	Pot    []float64
}

type edgeRecord struct {
	Src, Dst int
	Group    uint8
	HasPot   bool
	Pot      []float64 // row major
}

type graphRecord struct {
	NumStates int
	Nodes     []nodeRecord
	Edges     []edgeRecord
}

// encodeGraph walks g in node order and writes it as a gob+gzip blob.
func encodeGraph(g graph.Graph) ([]byte, error) {
	rec := graphRecord{NumStates: g.NumStates()}
	n := g.NumNodes()
	rec.Nodes = make([]nodeRecord, n)
	for i := 0; i < n; i++ {
		pot, err := g.Node(i)
		if err != nil {
			return nil, err
		}
		if pot != nil {
			rec.Nodes[i] = nodeRecord{HasPot: true, Pot: mat.Col(nil, 0, pot)}
		}
		for _, dst := range g.ChildNodes(i) {
			e := edgeRecord{Src: i, Dst: dst, Group: uint8(g.EdgeGroup(i, dst))}
			if pot := g.Edge(i, dst); pot != nil {
				e.HasPot = true
				e.Pot = flatten(pot)
			}
			rec.Edges = append(rec.Edges, e)
		}
	}
	return gobGzip(rec)
}

// decodeGraph rebuilds a Store from a blob written by encodeGraph.
func decodeGraph(blob []byte) (*graph.Store, error) {
	var rec graphRecord
	if err := gunzipGob(blob, &rec); err != nil {
		return nil, err
	}
	s := graph.NewStore(rec.NumStates)
	for i, nr := range rec.Nodes {
		var pot *mat.VecDense
		if nr.HasPot {
			pot = mat.NewVecDense(len(nr.Pot), nr.Pot)
		}
		if _, err := s.AddNode(pot); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	for _, er := range rec.Edges {
		var pot *mat.Dense
		if er.HasPot {
			pot = mat.NewDense(rec.NumStates, rec.NumStates, er.Pot)
		}
		if err := s.AddEdge(er.Src, er.Dst, pot); err != nil {
			return nil, fmt.Errorf("edge %d->%d: %w", er.Src, er.Dst, err)
		}
		if err := s.SetEdgeGroup(er.Src, er.Dst, graph.Group(er.Group)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

func gobGzip(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipGob(blob []byte, v interface{}) error {
	if len(blob) == 0 {
		return fmt.Errorf("empty blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	if err := gob.NewDecoder(gz).Decode(v); err != nil {
		return fmt.Errorf("failed to decode blob: %w", err)
	}
	return nil
}
