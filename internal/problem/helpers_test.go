package problem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func minimalSrc(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "minimal.cue"))
	require.NoError(t, err)
	return string(data)
}

func minimalWith(extra string) string {
	data, err := os.ReadFile(filepath.Join("testdata", "minimal.cue"))
	if err != nil {
		panic(err)
	}
	return string(data) + "\n" + extra + "\n"
}

func replace(src, old, new string) string {
	if !strings.Contains(src, old) {
		panic("fixture does not contain " + old)
	}
	return strings.Replace(src, old, new, 1)
}
