package youtube

import (
	"context"
	"testing"

	"chandir/lib/extract"
	"chandir/lib/source"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testId = "UCHnyfMqiRRG1u-2MsSQLbXA"

const aboutPage = `<!DOCTYPE html><html><head>
<meta property="og:title" content="Veritasium">
<link rel="image_src" href="https://yt3.ggpht.com/veritasium=s900">
<link rel="canonical" href="https://www.youtube.com/channel/UCHnyfMqiRRG1u-2MsSQLbXA">
</head><body>
<script>var ytInitialData = {"metadata":{"channelMetadataRenderer":{"externalId":"UCHnyfMqiRRG1u-2MsSQLbXA"}},
"header":{"badges":[{"metadataBadgeRenderer":{"icon":{"iconType":"CHECK_CIRCLE_THICK"},"style":"BADGE_STYLE_TYPE_VERIFIED","tooltip":"Verified"}}]},
"aboutChannelViewModel":{"canonicalChannelUrl":"http://www.youtube.com/@veritasium","subscriberCountText":"16.8M subscribers","viewCountText":"3,207,329,540 views","videoCountText":"453 videos"}};</script>
</body></html>`

const legacyPage = `<html><head>
<link rel="canonical" href="https://www.youtube.com/@smallchannel">
</head><body>
<script>var ytInitialData = {"header":{"c4TabbedHeaderRenderer":{"title":{"simpleText":"Small & Co"},
"avatar":{"thumbnails":[{"url":"https://yt3.ggpht.com/small=s88","width":88}]},
"subscriberCountText":{"simpleText":"4.62K subscribers"},
"videoCountText":{"runs":[{"text":"1,234"},{"text":" videos"}]},
"badges":[{"tooltip":"Verified"}]}},
"metadata":{"channelMetadataRenderer":{"externalId":"UCX6OQ3DkcsbYNE6H8uQQuVA"}}};</script>
</body></html>`

const hiddenPage = `<html><head><meta property="og:title" content="Quiet"></head><body>
<script>{"canonicalChannelUrl":"/@quiet","hiddenSubscriberCount":true,"viewCountText":"12,000 views","videoCountText":"1 video"}</script>
</body></html>`

func ptr(v int64) *int64 {
	return &v
}

func parse(page, ref string) (source.Result, error) {
	p := Descriptor(DefaultOptions)
	return p.Parse(context.Background(), page, source.Request{Query: ref})
}

func TestParseAboutPage(t *testing.T) {
	res, err := parse(aboutPage, "@veritasium")
	require.NoError(t, err)

	expected := source.Result{
		Identity: source.Identity{
			Title:    "Veritasium",
			Pfp:      "https://yt3.ggpht.com/veritasium=s900",
			Handle:   "@veritasium",
			ID:       testId,
			Verified: true,
		},
		Counts: source.Counts{
			Subs:   ptr(16_800_000),
			Views:  ptr(3_207_329_540),
			Videos: ptr(453),
		},
	}
	require.Empty(t, cmp.Diff(expected, res))
}

func TestParseLegacyShapes(t *testing.T) {
	res, err := parse(legacyPage, "@smallchannel")
	require.NoError(t, err)

	expected := source.Result{
		Identity: source.Identity{
			Title:    "Small & Co",
			Pfp:      "https://yt3.ggpht.com/small=s88",
			Handle:   "@smallchannel",
			ID:       "UCX6OQ3DkcsbYNE6H8uQQuVA",
			Verified: true,
		},
		Counts: source.Counts{
			Subs:   ptr(4_620),
			Videos: ptr(1_234),
		},
	}
	require.Empty(t, cmp.Diff(expected, res))
}

const spacedPage = `<html><head><meta property="og:title" content="Spaced"></head><body>
<script>var ytInitialData = {"canonicalChannelUrl": "/@spaced",
"subscriberCountText": {
	"accessibility": {"accessibilityData": {"label": "2.1 million subscribers"}},
	"simpleText": "2.1M subscribers"
},
"videoCountText": {"simpleText": "1,204 videos"},
"viewCountText": {"trackingParams": "CAEQ8", "runs": [ {"bold": true, "text": "98,765,432"}, {"text": " views"}]}};</script>
</body></html>`

func TestParseTolerantShapes(t *testing.T) {
	res, err := parse(spacedPage, "@spaced")
	require.NoError(t, err)

	expected := source.Counts{
		Subs:   ptr(2_100_000),
		Views:  ptr(98_765_432),
		Videos: ptr(1_204),
	}
	require.Empty(t, cmp.Diff(expected, res.Counts))
	require.Equal(t, "@spaced", res.Identity.Handle)
}

func TestParseHiddenSubscribers(t *testing.T) {
	res, err := parse(hiddenPage, "@quiet")
	require.NoError(t, err)
	require.True(t, res.HiddenSubs)
	require.Nil(t, res.Counts.Subs)
	require.Equal(t, int64(12_000), *res.Counts.Views)
	require.Equal(t, int64(1), *res.Counts.Videos)
	require.Equal(t, "@quiet", res.Identity.Handle)
	require.False(t, res.Identity.Verified)
}

func TestParseEmptyPage(t *testing.T) {
	res, err := parse("<html><body>nothing here</body></html>", "@nobody")
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(source.Result{}, res))
}

func TestParseMismatch(t *testing.T) {
	_, err := parse(aboutPage, "@mrbeast")
	require.ErrorIs(t, err, source.ErrShapeMismatch)

	_, err = parse(aboutPage, "UCX6OQ3DkcsbYNE6H8uQQuVA")
	require.ErrorIs(t, err, source.ErrShapeMismatch)

	// bare names are compared like handles
	_, err = parse(aboutPage, "Veritasium")
	require.NoError(t, err)

	_, err = parse(aboutPage, testId)
	require.NoError(t, err)

	// legacy urls can't be checked
	_, err = parse(aboutPage, "https://www.youtube.com/c/veritasium")
	require.NoError(t, err)
}

func TestAboutURL(t *testing.T) {
	cases := []struct {
		ref      string
		expected string
	}{
		{ref: "@veritasium", expected: "https://www.youtube.com/@veritasium/about?hl=en&gl=US&persist_hl=1&persist_gl=1"},
		{ref: testId, expected: "https://www.youtube.com/channel/" + testId + "/about?hl=en&gl=US&persist_hl=1&persist_gl=1"},
		{ref: "veritasium", expected: "https://www.youtube.com/@veritasium/about?hl=en&gl=US&persist_hl=1&persist_gl=1"},
		{ref: "@café", expected: "https://www.youtube.com/@caf%C3%A9/about?hl=en&gl=US&persist_hl=1&persist_gl=1"},
		{ref: "@caf%C3%A9", expected: "https://www.youtube.com/@caf%C3%A9/about?hl=en&gl=US&persist_hl=1&persist_gl=1"},
		{ref: "café", expected: "https://www.youtube.com/@caf%C3%A9/about?hl=en&gl=US&persist_hl=1&persist_gl=1"},
		{ref: "https://www.youtube.com/c/veritasium/", expected: "https://www.youtube.com/c/veritasium/about?gl=US&hl=en&persist_gl=1&persist_hl=1"},
		{ref: "https://www.youtube.com/user/legacy/about", expected: "https://www.youtube.com/user/legacy/about?gl=US&hl=en&persist_gl=1&persist_hl=1"},
	}
	for _, c := range cases {
		t.Run(c.ref, func(t *testing.T) {
			got, err := AboutURL(c.ref)
			require.NoError(t, err)
			require.Equal(t, c.expected, got)
		})
	}

	_, err := AboutURL("")
	require.Error(t, err)
}

func TestDescriptor(t *testing.T) {
	d := Descriptor(DefaultOptions)
	require.Equal(t, Name, d.Name)
	require.True(t, d.Identity)
	require.Equal(t, extract.Metrics, d.Fills)
	require.Equal(t, 3, d.Retry.Attempts)
	require.NotNil(t, d.Bust)
}
