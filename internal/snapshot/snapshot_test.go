package snapshot

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/graph"
	"github.com/banshee-data/gridcrf/internal/testutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore(2)
	for i := 0; i < 4; i++ {
		var pot *mat.VecDense
		if i%2 == 0 {
			pot = mat.NewVecDense(2, []float64{float64(i), 1})
		}
		_, err := s.AddNode(pot)
		require.NoError(t, err)
	}
	require.NoError(t, s.AddArc(0, 1, mat.NewDense(2, 2, []float64{4, 1, 9, 4})))
	require.NoError(t, s.AddEdge(1, 2, nil))
	require.NoError(t, s.AddEdge(3, 2, mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	require.NoError(t, s.SetArcGroup(0, 1, 5))
	return s
}

func TestOpen_Migrates(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Migrating again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	src := sampleStore(t)

	id, err := db.Save(Meta{Name: "sample", Width: 2, Height: 1, Layers: 2, Edges: "link|grid"}, src)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	meta, got, err := db.Load(id)
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)
	assert.Equal(t, "sample", meta.Name)
	assert.Equal(t, 2, meta.States)
	assert.Equal(t, 4, meta.NodeCount)
	assert.Equal(t, 4, meta.EdgeCount)
	assert.Equal(t, "link|grid", meta.Edges)
	assert.WithinDuration(t, time.Now(), meta.CreatedAt, time.Minute)

	require.Equal(t, src.NumNodes(), got.NumNodes())
	require.Equal(t, src.NumEdges(), got.NumEdges())
	for n := 0; n < src.NumNodes(); n++ {
		want, err := src.Node(n)
		require.NoError(t, err)
		have, err := got.Node(n)
		require.NoError(t, err)
		testutil.AssertVecEqual(t, have, want, 0)

		if diff := cmp.Diff(src.ChildNodes(n), got.ChildNodes(n)); diff != "" {
			t.Errorf("children of %d mismatch (-want +got):\n%s", n, diff)
		}
		for _, c := range src.ChildNodes(n) {
			testutil.AssertDenseEqual(t, got.Edge(n, c), src.Edge(n, c), 0)
			assert.Equal(t, src.EdgeGroup(n, c), got.EdgeGroup(n, c))
		}
	}
	assert.Equal(t, graph.Group(5), got.EdgeGroup(1, 0))
	assert.Nil(t, got.Edge(1, 2))
}

func TestList(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	older, err := db.Save(Meta{Name: "older", CreatedAt: time.UnixMilli(1_000)}, graph.NewStore(2))
	require.NoError(t, err)
	newer, err := db.Save(Meta{Name: "newer", CreatedAt: time.UnixMilli(2_000)}, graph.NewStore(3))
	require.NoError(t, err)

	metas, err := db.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, newer, metas[0].ID)
	assert.Equal(t, older, metas[1].ID)
	assert.Equal(t, 3, metas[0].States)
	assert.Equal(t, int64(1_000), metas[1].CreatedAt.UnixMilli())
}

func TestDelete(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	id, err := db.Save(Meta{Name: "gone"}, sampleStore(t))
	require.NoError(t, err)
	require.NoError(t, db.Delete(id))

	_, _, err = db.Load(id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.Delete(id), ErrNotFound))
}

func TestDecisions(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	id, err := db.Save(Meta{Name: "labels"}, sampleStore(t))
	require.NoError(t, err)

	got, err := db.Decisions(id)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := [][]int{{0, 1, -1}, {2, 2, 0}}
	require.NoError(t, db.SaveDecisions(id, want))
	got, err = db.Decisions(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.True(t, errors.Is(db.SaveDecisions(uuid.New(), want), ErrNotFound))
	_, err = db.Decisions(uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDecodeGraph_Errors(t *testing.T) {
	t.Parallel()
	_, err := decodeGraph(nil)
	assert.Error(t, err)
	_, err = decodeGraph([]byte("not gzip"))
	assert.Error(t, err)
}
