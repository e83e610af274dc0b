package cmd

import (
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/output"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

func TestDelete_Yes(t *testing.T) {
	base, profiles := storageFixture(t)

	_, stderr, err := runCLI(t, "", "--profiles", profiles, "delete", "2024/a.png", "--yes")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(base, "2024", "a.png"))
	assert.FileExists(t, filepath.Join(base, "2024", "notes.txt"))
	assert.Contains(t, stderr, "deleted: 2024/a.png")
}

func TestDelete_PromptAccepts(t *testing.T) {
	base, profiles := storageFixture(t)

	_, stderr, err := runCLI(t, "y\n", "--profiles", profiles, "delete", "2024/a.png")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Delete 2024/a.png (2.0 KB)? [y/N]")
	assert.NoFileExists(t, filepath.Join(base, "2024", "a.png"))
}

func TestDelete_PromptDeclines(t *testing.T) {
	base, profiles := storageFixture(t)

	for _, answer := range []string{"n\n", "\n", ""} {
		_, _, err := runCLI(t, answer, "--profiles", profiles, "delete", "2024/a.png")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(base, "2024", "a.png"), "answer %q", answer)
	}
}

func TestDelete_ByFilter(t *testing.T) {
	base, profiles := storageFixture(t)

	_, _, err := runCLI(t, "", "--profiles", profiles, "delete", "--images", "--exclude-hidden", "--yes")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(base, "2024", "a.png"))
	assert.NoFileExists(t, filepath.Join(base, "2023", "old.jpg"))
	assert.FileExists(t, filepath.Join(base, ".thumbs", "a.png"))
	assert.FileExists(t, filepath.Join(base, "2024", "notes.txt"))
}

func TestDelete_KeysNarrowedByFilter(t *testing.T) {
	base, profiles := storageFixture(t)

	_, _, err := runCLI(t, "", "--profiles", profiles, "delete", "2024/a.png", "2024/notes.txt", "--images", "--yes")
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(base, "2024", "a.png"))
	assert.FileExists(t, filepath.Join(base, "2024", "notes.txt"))
}

func TestDelete_MissingKey(t *testing.T) {
	base, profiles := storageFixture(t)

	out, _, err := runCLI(t, "", "--profiles", profiles, "delete", "2024/zzz.png", "2024/a.png", "--yes", "--output", "jsonl")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCode(err))
	assert.NoFileExists(t, filepath.Join(base, "2024", "a.png"), "present keys are still deleted")

	_, _, errs := parseJSONL(t, out)
	require.Len(t, errs, 1)
	assert.Equal(t, output.ErrCodeNotFound, errs[0].Code)
	assert.Equal(t, "2024/zzz.png", errs[0].Key)
}

func TestDelete_RequiresTarget(t *testing.T) {
	_, profiles := storageFixture(t)

	_, _, err := runCLI(t, "", "--profiles", profiles, "delete", "--yes")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoTarget)
}

func TestDelete_UnsupportedStorage(t *testing.T) {
	_, profiles := storageFixture(t)

	_, _, err := runCLI(t, "", "--profiles", profiles, "--profile", "drive", "delete", "a.png", "--yes")
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnsupported)
}

func TestDeleteTargets(t *testing.T) {
	snap := filelist.Snapshot{Items: []provider.ObjectDescriptor{
		{Key: "a.png", IsImage: true},
		{Key: "b.txt"},
		{Key: "c.jpg", IsImage: true},
	}}
	all, err := (&selectorFlags{}).selector()
	require.NoError(t, err)
	images, err := (&selectorFlags{imagesOnly: true}).selector()
	require.NoError(t, err)

	targets, missing := deleteTargets(snap, nil, images)
	assert.Equal(t, []string{"a.png", "c.jpg"}, keysOf(targets))
	assert.Empty(t, missing)

	targets, missing = deleteTargets(snap, []string{"c.jpg", "zz", "a.png", "c.jpg"}, all)
	assert.Equal(t, []string{"c.jpg", "a.png"}, keysOf(targets))
	assert.Equal(t, []string{"zz"}, missing)
}

func keysOf(items []provider.ObjectDescriptor) []string {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}
