package objectstore_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/objectstore"
)

func Test_Metadata_Expired_Is_False_When_TTL_Is_Nil(t *testing.T) {
	t.Parallel()

	m := &objectstore.Metadata{UpdatedAt: 1000}
	require.False(t, m.Expired(2000))
}

func Test_Metadata_Expired_Compares_Now_Against_UpdatedAt_Plus_TTL(t *testing.T) {
	t.Parallel()

	ttl := 10.0
	m := &objectstore.Metadata{UpdatedAt: 1000, TTL: &ttl}

	require.False(t, m.Expired(1009))
	require.True(t, m.Expired(1011))
}

func Test_Metadata_Expired_Is_Unconditionally_True_For_Zero_TTL(t *testing.T) {
	t.Parallel()

	ttl := 0.0
	m := &objectstore.Metadata{UpdatedAt: 1000, TTL: &ttl}

	// nowSec == UpdatedAt: a strict now > updatedAt+ttl comparison would say
	// "not yet expired" here, but a ttl of 0 must always mean expired,
	// regardless of clock resolution.
	require.True(t, m.Expired(1000))
}

func Test_Metadata_Expired_Is_Unconditionally_True_For_Negative_TTL(t *testing.T) {
	t.Parallel()

	ttl := -5.0
	m := &objectstore.Metadata{UpdatedAt: 1000, TTL: &ttl}

	require.True(t, m.Expired(1000))
}

func Test_Metadata_RemainingLifetime_Is_Nil_Without_TTL(t *testing.T) {
	t.Parallel()

	m := &objectstore.Metadata{UpdatedAt: 1000}
	require.Nil(t, m.RemainingLifetime(1500))
}

func Test_Metadata_RemainingLifetime_Can_Be_Negative_When_Expired(t *testing.T) {
	t.Parallel()

	ttl := 5.0
	m := &objectstore.Metadata{UpdatedAt: 1000, TTL: &ttl}

	remaining := m.RemainingLifetime(1010)
	require.NotNil(t, remaining)
	require.InDelta(t, -5.0, *remaining, 0.0001)
}

func Test_Metadata_Marshal_Unmarshal_RoundTrips(t *testing.T) {
	t.Parallel()

	ttl := 30.0
	original := &objectstore.Metadata{
		UUID:      "00000000-0000-4000-8000-000000000000",
		Class:     "User",
		Checksum:  "deadbeef",
		CreatedAt: 100,
		UpdatedAt: 200,
		TTL:       &ttl,
		Children:  []string{"a", "b"},
		Parents:   []string{"c"},
	}

	data, err := objectstore.MarshalMetadata(original)
	require.NoError(t, err)

	decoded, err := objectstore.UnmarshalMetadata(data)
	require.NoError(t, err)

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Fatalf("metadata round trip mismatch (-want +got):\n%s", diff)
	}
}
