package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_ScrollThenExitIntent(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "scroll_then_exit_intent.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	requirePass(t, result)
}

func TestSnapshot_MarshalIsStable(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "attribute_frequency.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first).Marshal()
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, byte('\n'), a[len(a)-1])
}

func TestCompareGoldenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "x.golden")

	err := CompareGoldenFile(path, []byte("one\n"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, CompareGoldenFile(path, []byte("one\n"), true))
	assert.NoError(t, CompareGoldenFile(path, []byte("one\n"), false))

	err = CompareGoldenFile(path, []byte("two\n"), false)
	var mismatch *GoldenMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, path, mismatch.Path)
}
