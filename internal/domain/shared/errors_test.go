package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitError(t *testing.T) {
	cause := errors.New("connection refused")

	transport := &CommitError{Err: cause}
	require.True(t, errors.Is(transport, ErrCommitFailed))
	require.True(t, errors.Is(transport, cause))
	require.Equal(t, GenericCommitFailure, transport.UserMessage())

	rejected := &CommitError{Reason: "Bid must exceed 150", Rejected: true}
	require.True(t, errors.Is(rejected, ErrCommitFailed))
	require.Equal(t, "Bid must exceed 150", rejected.UserMessage())
	require.Equal(t, "Bid must exceed 150", rejected.Error())
}

func TestItemStatus_Valid(t *testing.T) {
	for _, s := range ItemStatuses {
		require.True(t, s.Valid())
	}
	require.False(t, ItemStatus("ARCHIVED").Valid())
}
