package bid

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMaxAmount(t *testing.T) {
	_, ok := MaxAmount(nil)
	require.False(t, ok)

	max, ok := MaxAmount([]Bid{{Amount: 80}, {Amount: 120}, {Amount: 95}})
	require.True(t, ok)
	require.Equal(t, int64(120), max)

	max, ok = MaxAmount([]Bid{{Amount: 120}, {Amount: 120}})
	require.True(t, ok)
	require.Equal(t, int64(120), max)
}

func TestNewState_SeedsDraftAtMinimum(t *testing.T) {
	s := NewState(100)
	snap := s.Snapshot()
	require.Equal(t, int64(100), snap.Current)
	require.Equal(t, int64(105), snap.Draft)
	require.Equal(t, int64(105), snap.MinBid)
	require.Equal(t, []int64{105, 115, 125}, snap.Increments)
}

func TestState_Raise(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		wantRaised  bool
		wantCurrent int64
		wantDraft   int64
	}{
		{name: "higher_raises", amount: 120, wantRaised: true, wantCurrent: 120, wantDraft: 126},
		{name: "equal_is_noop", amount: 100, wantRaised: false, wantCurrent: 100, wantDraft: 42},
		{name: "lower_is_noop", amount: 50, wantRaised: false, wantCurrent: 100, wantDraft: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(100)
			s.SetDraft(42)

			require.Equal(t, tt.wantRaised, s.Raise(tt.amount))
			snap := s.Snapshot()
			require.Equal(t, tt.wantCurrent, snap.Current)
			require.Equal(t, tt.wantDraft, snap.Draft)
		})
	}
}

func TestState_RaiseIsMonotonicForAnySequence(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := NewState(100)

	prev := s.Current()
	for i := 0; i < 1000; i++ {
		s.Raise(rng.Int63n(10000))
		cur := s.Current()
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestState_ConcurrentRaisesKeepMaximum(t *testing.T) {
	s := NewState(1)

	var wg sync.WaitGroup
	for i := int64(1); i <= 200; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			s.Raise(v)
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(200), s.Current())
	require.Equal(t, MinBid(200), s.Snapshot().Draft)
}

func TestNewIntent(t *testing.T) {
	now := time.Now()
	a := NewIntent(7, 150, now)
	b := NewIntent(7, 150, now)

	require.Equal(t, int64(7), a.ItemID)
	require.Equal(t, int64(150), a.Amount)
	require.Equal(t, now, a.CreatedAt)
	require.NotEqual(t, a.ID, b.ID)
}
