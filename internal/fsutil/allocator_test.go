package fsutil

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangedl/internal/rderrors"
)

func TestCheckDiskSpaceSkipsUnknownSize(t *testing.T) {
	assert.NoError(t, CheckDiskSpace(filepath.Join(t.TempDir(), "f"), 0))
	assert.NoError(t, CheckDiskSpace(filepath.Join(t.TempDir(), "f"), -1))
}

func TestCheckDiskSpaceAllowsSmallFile(t *testing.T) {
	assert.NoError(t, CheckDiskSpace(filepath.Join(t.TempDir(), "f"), 1024))
}

func TestCheckDiskSpaceRejectsImpossiblyLargeFile(t *testing.T) {
	err := CheckDiskSpace(filepath.Join(t.TempDir(), "f"), math.MaxInt64/2)
	require.Error(t, err)
	var rerr *rderrors.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, rderrors.KindIO, rerr.Kind)
}
