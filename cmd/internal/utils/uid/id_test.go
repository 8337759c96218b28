package uid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_FailureIsSticky(t *testing.T) {
	err := Init(2048)
	require.ErrorContains(t, err, "failed to initialize snowflake node")

	// A valid id afterwards must not hide the failed setup.
	require.ErrorIs(t, Init(1), err)
	require.Nil(t, node)
}
