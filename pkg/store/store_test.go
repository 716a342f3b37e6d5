package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	pkgio "github.com/matzehuels/hivesplit/pkg/io"
	"github.com/matzehuels/hivesplit/pkg/split"
)

func sampleOutputs(runID string) []pkgio.Output {
	return []pkgio.Output{
		{ReadoutID: "b", RunID: runID, ConfigHash: "h", Cached: true, Result: &split.Result{
			Subevents: []split.Subevent{{Hits: []int{0, 2}, Start: 10, End: 30, Strings: 2, Modules: 2}},
			Noise:     []split.Subevent{{Hits: []int{1}}},
			Input:     3,
		}},
		{ReadoutID: "a", RunID: runID, ConfigHash: "h", Result: &split.Result{Subevents: []split.Subevent{}}},
	}
}

func TestDocuments(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	docs := documents(sampleOutputs("r"), now)

	require.Len(t, docs, 2)
	assert.Equal(t, 0, docs[0].Position)
	assert.Equal(t, 1, docs[1].Position)
	assert.False(t, docs[0].Cached, "cache provenance is not persisted")
	assert.Equal(t, now, docs[1].SavedAt)
}

func TestDocumentLayout(t *testing.T) {
	raw, err := bson.Marshal(documents(sampleOutputs("r"), time.Now())[0])
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "r", m["run_id"])
	assert.Equal(t, "b", m["readout_id"])
	assert.Contains(t, m, "result")
	assert.NotContains(t, m, "cached")
	assert.NotContains(t, m, "output")
}

func TestNewMongoStoreRequiresURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), MongoOptions{})
	assert.True(t, hserrors.IsConfiguration(err))
}

// TestMongoStore runs against a live server named by HIVESPLIT_MONGO_URI.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("HIVESPLIT_MONGO_URI")
	if uri == "" {
		t.Skip("HIVESPLIT_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, MongoOptions{URI: uri, Database: "hivesplit_test"})
	require.NoError(t, err)
	defer s.Close(ctx)

	runID := uuid.NewString()
	outs := sampleOutputs(runID)
	require.NoError(t, s.Save(ctx, outs))
	require.NoError(t, s.Save(ctx, outs), "saving twice replaces")

	got, err := s.Load(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ReadoutID)
	assert.Equal(t, []int{0, 2}, got[0].Result.Subevents[0].Hits)

	one, err := s.LoadReadout(ctx, runID, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", one.ReadoutID)

	_, err = s.Load(ctx, uuid.NewString())
	assert.True(t, hserrors.Is(err, hserrors.ErrCodeNotFound))
	_, err = s.LoadReadout(ctx, runID, "zzz")
	assert.True(t, hserrors.Is(err, hserrors.ErrCodeNotFound))
}
