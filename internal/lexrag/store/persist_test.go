package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	original := buildTestStore(t)
	require.NoError(t, original.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, original.Stats(), loaded.Stats())

	// Hybrid ranking must be identical: vectors are bit-exact and the
	// keyword index is rebuilt from the same texts.
	query := vec4(1, 0, 0, 0)
	assert.Equal(t,
		original.SearchDocuments(query, "punishment", 5),
		loaded.SearchDocuments(query, "punishment", 5),
	)
	assert.Equal(t,
		original.SearchTierBlocks(TierProcedure, vec4(0, 0, 1, 0), "fir", 5),
		loaded.SearchTierBlocks(TierProcedure, vec4(0, 0, 1, 0), "fir", 5),
	)
	assert.Equal(t,
		original.LookupSectionByNumber("64", "bns"),
		loaded.LookupSectionByNumber("64", "bns"),
	)

	// Payloads come back as their concrete types.
	results := loaded.SearchTierBlocks(TierProcedure, vec4(0, 0, 1, 0), "", 1)
	require.NotEmpty(t, results)
	payload, ok := results[0].Metadata["payload"].(ProcedurePayload)
	require.True(t, ok, "payload lost its concrete type across the roundtrip")
	assert.Equal(t, "reporting", payload.Stage)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, buildTestStore(t).Save(dir))

	// Tamper with the configured dimension; the vector files still carry 4.
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, configFileName),
		[]byte(`{"embedding_dim": 8}`),
		0o644,
	))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestLoadInvalidDimension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, configFileName),
		[]byte(`{"embedding_dim": 0}`),
		0o644,
	))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid embedding dimension")
}
