package frndly

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelsListing(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	c := newTestClient(t, ms)

	channels, err := c.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)

	assert.Equal(t, "123", channels[0].ID)
	assert.Equal(t, "Hallmark Channel", channels[0].Title)
	assert.Equal(t, "bucket1,hallmark.png", channels[0].LogoRef)
}

func TestChannelsEmptyListIsError(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	ms.SetChannels() // geographic restriction presents as an empty list
	c := newTestClient(t, ms)

	channels, err := c.Channels(context.Background())
	require.Error(t, err)
	assert.Nil(t, channels)
	assert.True(t, errors.Is(err, ErrNoChannels))
	assert.Contains(t, err.Error(), "FTV2G_IP", "error must point the operator at the IP workaround")
}

func TestChannelsFiltersBannerRows(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	ms.SetChannels(
		ChannelFixture{ID: 1, Title: "Real Channel", Logo: "b,real.png"},
		ChannelFixture{ID: 2, Title: "Promo Banner", Logo: "b,banner.png", Banner: true},
	)
	c := newTestClient(t, ms)

	channels, err := c.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "Real Channel", channels[0].Title)
}

func TestTruthyMetadataForms(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"", false},
		{"false", false},
		{"0", false},
		{"1", true},
		{float64(1), true},
		{float64(0), false},
		{nil, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, truthy(tc.in), "truthy(%#v)", tc.in)
	}
}
