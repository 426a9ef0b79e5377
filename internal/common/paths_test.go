package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	_, err := CleanPath(" ")
	assert.Error(t, err)

	abs, err := CleanPath("data/../extracts")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
	assert.Equal(t, "extracts", filepath.Base(abs))

	parent, err := CleanPath("../extracts")
	require.NoError(t, err, "relative source directories above the working directory are allowed")
	assert.True(t, filepath.IsAbs(parent))
}

func TestValidatePath(t *testing.T) {
	base := t.TempDir()

	_, err := ValidatePath(filepath.Join(base, "bookings.csv"), base)
	assert.NoError(t, err)

	_, err = ValidatePath(base+"-other/bookings.csv", base)
	assert.Error(t, err, "sibling directory sharing a prefix must be rejected")

	_, err = ValidatePath(filepath.Join(base, "..", "bookings.csv"), base)
	assert.Error(t, err)

	_, err = ValidatePath(filepath.Join(base, "..data", "bookings.csv"), base)
	assert.NoError(t, err, "names starting with dots stay inside the base")
}

func TestDatedPath(t *testing.T) {
	base := t.TempDir()

	path, err := DatedPath(base, "bookings_{date}.csv", "2024-07-25")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "bookings_2024-07-25.csv"), path)

	path, err = DatedPath(base, "{date}/customers.csv", "2024-07-25")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2024-07-25", "customers.csv"), path)

	_, err = DatedPath(base, "bookings.csv", "2024-07-25")
	assert.Error(t, err)

	_, err = DatedPath(base, "../{date}.csv", "2024-07-25")
	assert.Error(t, err)
}
