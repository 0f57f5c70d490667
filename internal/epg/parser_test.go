// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package epg

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE tv SYSTEM "xmltv.dtd">
<tv generator-info-name="upstream">
  <channel id="bbc1.uk">
    <display-name lang="en">BBC One</display-name>
    <display-name>BBC 1</display-name>
    <icon src="http://i/bbc1.png"/>
  </channel>
  <channel id="itv.uk">
    <display-name>ITV</display-name>
  </channel>
  <channel id="bbc1.uk">
    <display-name>Duplicate</display-name>
  </channel>
  <programme start="20240101100000 +0000" stop="20240101110000 +0000" channel="bbc1.uk">
    <title lang="en">News</title>
    <desc>Headlines &amp; weather</desc>
    <episode-num system="xmltv_ns">1.2.0/1</episode-num>
  </programme>
  <programme start="202401011100" stop="202401011200" channel="ITV.uk">
    <title>Quiz</title>
  </programme>
  <programme start="garbage" stop="20240101120000 +0000" channel="bbc1.uk">
    <title>Broken</title>
  </programme>
  <programme start="20240101130000 +0000" stop="20240101120000 +0000" channel="bbc1.uk">
    <title>Backwards</title>
  </programme>
  <programme start="20240101140000 +0100" channel="bbc1.uk">
    <title>Open ended</title>
  </programme>
</tv>
`

func TestParse_Sample(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	doc, problems, err := Parse(strings.NewReader(sampleXMLTV), Options{Zone: berlin})
	require.NoError(t, err)

	assert.Equal(t, []string{"bbc1.uk", "itv.uk"}, doc.ChannelOrder)
	bbc := doc.Channels["bbc1.uk"]
	require.NotNil(t, bbc)
	assert.Equal(t, []string{"BBC One", "BBC 1"}, bbc.DisplayNames)
	assert.Equal(t, "http://i/bbc1.png", bbc.Icon)
	assert.Len(t, bbc.Children, 3)
	assert.Equal(t, 0, bbc.Index)
	assert.Equal(t, 1, doc.Channels["itv.uk"].Index)

	require.Len(t, doc.Programmes, 3)
	news := doc.Programmes[0]
	assert.Equal(t, "News", news.Title)
	assert.Equal(t, "bbc1.uk", news.Channel)
	assert.True(t, news.Start.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Len(t, news.Children, 3)

	quiz := doc.Programmes[1]
	assert.Equal(t, "ITV.uk", quiz.Channel)
	assert.True(t, quiz.Start.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)), "no offset uses the default zone")

	open := doc.Programmes[2]
	assert.Equal(t, 2, open.Index)
	assert.True(t, open.Stop.Equal(open.Start))

	require.Equal(t, 2, problems.Len())
	for _, p := range problems.Items() {
		assert.Equal(t, diagnostics.KindMalformedTimestamp, p.Kind)
	}
	var te *diagnostics.MalformedTimestampError
	require.True(t, errors.As(problems.Items()[0].Err, &te))
	assert.Equal(t, "start", te.Attr)
	require.True(t, errors.As(problems.Items()[1].Err, &te))
	assert.Equal(t, "stop", te.Attr)
}

func TestParse_Fatal(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"empty", ""},
		{"wrong root", `<rss><channel/></rss>`},
		{"truncated", `<tv><channel id="a"><display-name>A</display-name>`},
		{"syntax", `<tv><channel id="a"><display-name>A</channel></tv>`},
		{"entity expansion", `<?xml version="1.0"?>
<!DOCTYPE lolz [<!ENTITY lol "lol">]>
<tv><channel id="a"><display-name>&lol;</display-name></channel></tv>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tt.xml), Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, diagnostics.ErrFatalInput)
		})
	}
}

func TestParse_Latin1Charset(t *testing.T) {
	// ü encoded as ISO-8859-1 0xFC.
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<tv><channel id=\"a\"><display-name>f\xfcr</display-name></channel></tv>"
	doc, _, err := Parse(strings.NewReader(raw), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"für"}, doc.Channels["a"].DisplayNames)
}

func TestParseTime(t *testing.T) {
	local := time.FixedZone("X", -5*3600)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"20240101120000 +0000", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"20240101120000 +0130", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"20240101120000-0500", time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{"20240101120000 +01:00", time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)},
		{"20240101120000 Z", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"20240101120000", time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{"202401011200", time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{"2024010112", time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{"20240101", time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, local)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got.UTC(), tt.want)
		})
	}

	for _, bad := range []string{"", "2024", "20241301120000 +0000", "20240101120000 +9999", "20240101120000 CET"} {
		_, err := ParseTime(bad, local)
		assert.Error(t, err, bad)
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "20240115203000 +0000", FormatTime(time.Date(2024, 1, 15, 20, 30, 0, 0, time.UTC)))
}
