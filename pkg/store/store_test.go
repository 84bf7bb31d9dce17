package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aeolun/pulse/pkg/protocol"
)

func TestAppendPopulatesBothViews(t *testing.T) {
	s := New()

	msg := s.Append("alice", "bob", "hi")
	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, "bob", msg.To)
	assert.Equal(t, protocol.StatusSent, msg.Status)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())

	fromAlice := s.History("alice", "bob")
	fromBob := s.History("bob", "alice")
	require.Len(t, fromAlice, 1)
	require.Len(t, fromBob, 1)
	assert.Equal(t, fromAlice[0], fromBob[0])
}

func TestHistoryEmptyForUnknownPair(t *testing.T) {
	s := New()
	assert.Empty(t, s.History("alice", "stranger"))
	assert.NotNil(t, s.History("alice", "stranger"))
}

func TestStatusVisibleFromBothViews(t *testing.T) {
	s := New()
	msg := s.Append("alice", "bob", "hi")

	updated, err := s.AdvanceStatus(msg.ID, protocol.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusDelivered, updated.Status)

	assert.Equal(t, protocol.StatusDelivered, s.History("alice", "bob")[0].Status)
	assert.Equal(t, protocol.StatusDelivered, s.History("bob", "alice")[0].Status)
}

func TestAdvanceStatusForwardOnly(t *testing.T) {
	s := New()
	msg := s.Append("alice", "bob", "hi")

	_, err := s.AdvanceStatus(msg.ID, protocol.StatusRead)
	require.NoError(t, err)

	// Regression attempts leave the stored message untouched.
	got, err := s.AdvanceStatus(msg.ID, protocol.StatusDelivered)
	assert.ErrorIs(t, err, ErrStatusRegression)
	assert.Equal(t, protocol.StatusRead, got.Status)

	// Re-applying the current status is a harmless no-op.
	got, err = s.AdvanceStatus(msg.ID, protocol.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusRead, got.Status)
}

func TestAdvanceStatusUnknownMessage(t *testing.T) {
	s := New()
	_, err := s.AdvanceStatus("999", protocol.StatusRead)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestAdvanceStatusSkipsDelivered(t *testing.T) {
	// A message read after the sender went offline never saw delivered.
	s := New()
	msg := s.Append("alice", "bob", "hi")

	got, err := s.AdvanceStatus(msg.ID, protocol.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusRead, got.Status)
}

func TestHistoryReturnsCopies(t *testing.T) {
	s := New()
	s.Append("alice", "bob", "hi")

	history := s.History("alice", "bob")
	history[0].Status = protocol.StatusRead
	history[0].Text = "tampered"

	fresh := s.History("alice", "bob")
	assert.Equal(t, protocol.StatusSent, fresh[0].Status)
	assert.Equal(t, "hi", fresh[0].Text)
}

// TestHistorySymmetry checks that for any interleaving of sends between any
// users, both participants of every pair observe logs of equal length with
// pairwise-equal message IDs in matching order.
func TestHistorySymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New()
		users := []string{"alice", "bob", "carol", "dave"}

		n := rapid.IntRange(0, 50).Draw(t, "sends")
		for i := 0; i < n; i++ {
			from := rapid.SampledFrom(users).Draw(t, "from")
			to := rapid.SampledFrom(users).Draw(t, "to")
			if from == to {
				continue
			}
			s.Append(from, to, fmt.Sprintf("msg-%d", i))
		}

		for i, a := range users {
			for _, b := range users[i+1:] {
				fromA := s.History(a, b)
				fromB := s.History(b, a)
				if len(fromA) != len(fromB) {
					t.Fatalf("history length mismatch for (%s,%s): %d vs %d", a, b, len(fromA), len(fromB))
				}
				for j := range fromA {
					if fromA[j].ID != fromB[j].ID {
						t.Fatalf("history order mismatch for (%s,%s) at %d: %s vs %s", a, b, j, fromA[j].ID, fromB[j].ID)
					}
				}
			}
		}
	})
}

func TestHistoryInsertionOrder(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		from, to := "alice", "bob"
		if i%2 == 1 {
			from, to = to, from
		}
		s.Append(from, to, fmt.Sprintf("msg-%d", i))
	}

	history := s.History("alice", "bob")
	require.Len(t, history, 10)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Text)
	}
}
