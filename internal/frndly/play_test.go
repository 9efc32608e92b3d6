package frndly

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPlayNumericIDUsesLiveProgram(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	now := time.Unix(1_700_000_000, 0)
	ms.SetPrograms("123",
		ProgramFixture{Title: "Earlier", StartMS: now.UnixMilli() - 7_200_000, EndMS: now.UnixMilli() - 3_600_000, Path: "channel/live/earlier"},
		ProgramFixture{Title: "Live Now", StartMS: now.UnixMilli() - 1000, EndMS: now.UnixMilli() + 1000, Path: "channel/live/now"},
	)
	c := newTestClient(t, ms, WithClock(fixedClock(now)))

	res, err := c.Play(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/live/master.m3u8?token=abc", res.URL)
	assert.Equal(t, 1, ms.GuideCalls, "numeric id playback consults the guide")
	assert.Equal(t, 1, ms.StreamCalls)
}

func TestPlayNumericIDNoLiveProgram(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	now := time.Unix(1_700_000_000, 0)
	ms.SetPrograms("123",
		ProgramFixture{Title: "Long Gone", StartMS: 0, EndMS: 1000, Path: "channel/live/gone"},
	)
	c := newTestClient(t, ms, WithClock(fixedClock(now)))

	_, err := c.Play(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLiveProgram))
	assert.Contains(t, err.Error(), "clock", "message must hint at clock skew")
	assert.Equal(t, 0, ms.StreamCalls)
}

func TestPlaySlugSkipsGuide(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	c := newTestClient(t, ms)

	res, err := c.Play(context.Background(), "some-slug")
	require.NoError(t, err)
	assert.NotEmpty(t, res.URL)
	assert.Equal(t, 0, ms.GuideCalls, "slug playback must not consult the guide")
	assert.Equal(t, 1, ms.StreamCalls)
}

func TestPlaySlugWithIDSuffixFallsBackToGuide(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	now := time.Unix(1_700_000_000, 0)
	ms.SetPrograms("123",
		ProgramFixture{Title: "Live Now", StartMS: now.UnixMilli() - 1000, EndMS: now.UnixMilli() + 1000, Path: "channel/live/now"},
	)
	// Slug resolution fails through its whole retry budget, the id
	// fallback then succeeds.
	ms.FailNext(2, 500, "bad slug")
	c := newTestClient(t, ms, WithClock(fixedClock(now)))

	res, err := c.Play(context.Background(), "hallmark-channel-123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.URL)
	assert.Equal(t, 1, ms.GuideCalls, "fallback resolves the trailing id through the guide")
}

func TestPlayWidevineRejected(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	ms.SetStream("https://cdn.example.com/drm/stream.mpd", "Widevine", "poll-1")
	c := newTestClient(t, ms)

	_, err := c.Play(context.Background(), "some-slug")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedStream))
	assert.Contains(t, err.Error(), "Widevine")
	assert.Contains(t, err.Error(), "stream.mpd", "error must name the URL")
}

func TestPlayAppendsStartOffsets(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	ms.SetPlayerStartMS(1_700_000_123_000)
	c := newTestClient(t, ms)

	res, err := c.Play(context.Background(), "some-slug")
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.URL, "start=1700000123"), "url: %s", res.URL)
	assert.True(t, strings.Contains(res.URL, "startTime=1700000123"), "url: %s", res.URL)
}

func TestPlayNotifiesSessionEnd(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()
	c := newTestClient(t, ms)

	_, err := c.Play(context.Background(), "some-slug")
	require.NoError(t, err)
	assert.Equal(t, 1, ms.EndCalls, "poll key must be released")
}

func TestSplitSlugID(t *testing.T) {
	cases := []struct {
		in       string
		slug, id string
	}{
		{"hallmark-channel-123", "hallmark-channel", "123"},
		{"some-slug", "some-slug", ""},
		{"plain", "plain", ""},
		{"123", "123", ""}, // handled by isDigits before splitting
		{"-5", "-5", ""},
	}
	for _, tc := range cases {
		slug, id := splitSlugID(tc.in)
		assert.Equal(t, tc.slug, slug, "slug of %q", tc.in)
		assert.Equal(t, tc.id, id, "id of %q", tc.in)
	}
}
