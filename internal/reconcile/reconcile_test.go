// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package reconcile

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/m3utrim/internal/diagnostics"
	"github.com/ManuGH/m3utrim/internal/epg"
	"github.com/ManuGH/m3utrim/internal/m3u"
	"github.com/ManuGH/m3utrim/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scheduleXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="upstream" source-info-name="provider">
  <channel id="zdf.de">
    <display-name>ZDF</display-name>
    <icon src="/local/zdf.png"/>
  </channel>
  <channel id="bbc1.uk">
    <display-name>BBC One HD</display-name>
    <icon src="https://img.example/bbc.png"/>
  </channel>
  <channel id="arte.de">
    <display-name>arte</display-name>
  </channel>
  <programme start="20231231235959 +0000" stop="20240101000000 +0000" channel="bbc1.uk"><title>before</title></programme>
  <programme start="20240101000000 +0000" stop="20240101010000 +0000" channel="bbc1.uk"><title>at start</title></programme>
  <programme start="20240101115900 +0000" stop="20240101120000 +0000" channel="BBC1.uk"><title>11:59</title></programme>
  <programme start="20240101120000 +0000" stop="20240101130000 +0000" channel="bbc1.uk"><title>12:00:00</title></programme>
  <programme start="20240101120001 +0000" stop="20240101130000 +0000" channel="bbc1.uk"><title>12:00:01</title></programme>
  <programme start="20240101060000 +0000" stop="20240101070000 +0000" channel="zdf.de"><title>Heute</title></programme>
  <programme start="20240101060000 +0000" stop="20240101070000 +0000" channel="orphan.tv"><title>Orphaned</title></programme>
</tv>`

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func parseSchedule(t testing.TB) *epg.Document {
	t.Helper()
	doc, problems, err := epg.Parse(strings.NewReader(scheduleXML), epg.Options{})
	require.NoError(t, err)
	require.Zero(t, problems.Len())
	return doc
}

func mk(name, id string) m3u.Channel {
	c := m3u.Channel{Name: name, URL: "http://s/" + name}
	if id != "" {
		c.Attrs.SetID(id)
	}
	return c
}

func playlist() []m3u.Channel {
	return []m3u.Channel{
		mk("BBC One", "BBC1.UK"),
		mk("ZDF", "zdf.de"),
		mk("BBC One Backup", "bbc1.uk"),
		mk("No ID", ""),
		mk("Unknown", "missing.tv"),
		mk("Orphan", "orphan.tv"),
	}
}

func titles(ps []epg.Programme) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Title)
	}
	return out
}

func ids(tv *epg.TV) []string {
	out := make([]string, 0, len(tv.Channels))
	for _, c := range tv.Channels {
		out = append(out, c.ID)
	}
	return out
}

func TestReconcile_WindowIsClosed(t *testing.T) {
	res := Reconcile(playlist(), parseSchedule(t), Options{Window: NewWindow(now, 12), Now: now})

	require.Len(t, res.Entries, 3)
	bbc := res.Entries[0]
	assert.Equal(t, "bbc1.uk", bbc.Channel.ID)
	assert.Equal(t, []string{"at start", "11:59", "12:00:00"}, titles(bbc.Programmes))
	for _, p := range bbc.Programmes {
		assert.Equal(t, "bbc1.uk", p.Channel)
		assert.Equal(t, "bbc1.uk", p.Attrs[2].Value, "channel attribute rendered lower case")
	}
}

func TestReconcile_NoWindowKeepsEverything(t *testing.T) {
	res := Reconcile(playlist(), parseSchedule(t), Options{Now: now})
	assert.Len(t, res.Entries[0].Programmes, 5)
	assert.Equal(t, 7, res.ProgrammeCount())
}

func TestReconcile_MissesWithoutSynthesize(t *testing.T) {
	res := Reconcile(playlist(), parseSchedule(t), Options{Window: NewWindow(now, 12), Now: now})

	assert.Equal(t, []diagnostics.NameID{
		{Name: "No ID", ID: ""},
		{Name: "Unknown", ID: "missing.tv"},
	}, res.NoSchedule)
	for _, e := range res.Entries {
		assert.False(t, e.Placeholder)
		assert.NotEqual(t, "missing.tv", e.Channel.ID)
	}

	orphan := res.Entries[2]
	assert.Equal(t, "orphan.tv", orphan.Channel.ID)
	assert.Equal(t, -1, orphan.SourceIndex)
	assert.Equal(t, []string{"Orphan"}, orphan.Channel.DisplayNames)
	assert.Equal(t, []string{"Orphaned"}, titles(orphan.Programmes))
}

func TestReconcile_SynthesizeOnMiss(t *testing.T) {
	w := NewWindow(now, 12)
	res := Reconcile(playlist(), parseSchedule(t), Options{Window: w, Now: now, Synthesize: true})

	require.Len(t, res.Entries, 5)
	assert.Len(t, res.NoSchedule, 2, "misses are reported even when synthesized")

	noID := res.Entries[2]
	assert.True(t, noID.Placeholder)
	assert.Equal(t, "No ID", noID.Channel.ID)
	require.Len(t, noID.Programmes, 1)
	p := noID.Programmes[0]
	assert.Equal(t, "No ID", p.Title)
	assert.True(t, p.Start.Equal(now))
	assert.True(t, p.Stop.Equal(w.End()))
	assert.Equal(t, "20240101000000 +0000", p.Attrs[0].Value)
	assert.Equal(t, "20240101120000 +0000", p.Attrs[1].Value)

	unknown := res.Entries[3]
	assert.Equal(t, "missing.tv", unknown.Channel.ID)
}

func TestReconcile_MissedNameDoesNotShadowMissedID(t *testing.T) {
	chs := []m3u.Channel{mk("First", "bbc2"), mk("bbc2", "")}
	res := Reconcile(chs, parseSchedule(t), Options{Now: now, Synthesize: true})

	assert.Equal(t, []diagnostics.NameID{
		{Name: "First", ID: "bbc2"},
		{Name: "bbc2", ID: ""},
	}, res.NoSchedule)
	require.Len(t, res.Entries, 2)
	assert.True(t, res.Entries[1].Placeholder)
}

func TestReconcile_PlaceholderDefaultSpan(t *testing.T) {
	res := Reconcile([]m3u.Channel{mk("Lonely", "")}, parseSchedule(t), Options{Now: now, Synthesize: true})
	require.Len(t, res.Entries, 1)
	p := res.Entries[0].Programmes[0]
	assert.Equal(t, DefaultPlaceholderSpan, p.Stop.Sub(p.Start))
}

func TestReconcile_DuplicateIdentifiersEmitOnce(t *testing.T) {
	res := Reconcile(playlist(), parseSchedule(t), Options{Now: now})
	count := 0
	for _, e := range res.Entries {
		if e.Channel.ID == "bbc1.uk" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestReconcile_ExactPolicy(t *testing.T) {
	res := Reconcile(playlist(), parseSchedule(t), Options{Policy: normalize.Exact, Window: NewWindow(now, 12), Now: now})

	require.NotEmpty(t, res.Entries)
	first := res.Entries[0]
	assert.Equal(t, "zdf.de", first.Channel.ID)

	var bbc *Entry
	for i := range res.Entries {
		if res.Entries[i].Channel.ID == "bbc1.uk" {
			bbc = &res.Entries[i]
		}
	}
	require.NotNil(t, bbc, "exact id of the backup channel still matches")
	assert.Equal(t, []string{"at start", "12:00:00"}, titles(bbc.Programmes))
	assert.Contains(t, res.NoSchedule, diagnostics.NameID{Name: "BBC One", ID: "BBC1.UK"})
}

func TestReconcile_ImagesAndDisplayNames(t *testing.T) {
	doc := parseSchedule(t)
	res := Reconcile(playlist(), doc, Options{
		Now:            now,
		RestrictImages: true,
		RenameDisplay:  func(s string) string { return strings.TrimSuffix(s, " HD") },
	})

	bbc, zdf := res.Entries[0].Channel, res.Entries[1].Channel
	assert.Equal(t, []string{"BBC One"}, bbc.DisplayNames)
	assert.Equal(t, "https://img.example/bbc.png", bbc.Icon)
	assert.Equal(t, "", zdf.Icon)

	// The parsed document is not modified.
	assert.Equal(t, "/local/zdf.png", doc.Channels["zdf.de"].Icon)
	assert.Equal(t, "BBC One HD", doc.Channels["bbc1.uk"].Children[0].Text)
}

func TestReconcile_RootAttributes(t *testing.T) {
	res := Reconcile(nil, parseSchedule(t), Options{Now: now})
	require.Len(t, res.Attrs, 1)
	assert.Equal(t, "source-info-name", res.Attrs[0].Name.Local)
	assert.Empty(t, res.Entries)
}

func TestReconcile_NilDocument(t *testing.T) {
	res := Reconcile(playlist()[:2], nil, Options{Now: now})
	assert.Empty(t, res.Entries)
	assert.Len(t, res.NoSchedule, 2)
}

func TestOrder(t *testing.T) {
	res := Reconcile(playlist(), parseSchedule(t), Options{Window: NewWindow(now, 12), Now: now, Synthesize: true})

	tests := []struct {
		policy OrderPolicy
		want   []string
	}{
		{OrderSource, []string{"zdf.de", "bbc1.uk", "No ID", "missing.tv", "orphan.tv"}},
		{OrderAlphabetical, []string{"bbc1.uk", "No ID", "orphan.tv", "missing.tv", "zdf.de"}},
		{OrderPlaylist, []string{"bbc1.uk", "zdf.de", "No ID", "missing.tv", "orphan.tv"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			tv := Order(res, tt.policy)
			assert.Equal(t, tt.want, ids(tv))

			// Programmes follow the channel order.
			var chans []string
			for _, p := range tv.Programmes {
				if len(chans) == 0 || chans[len(chans)-1] != p.Channel {
					chans = append(chans, p.Channel)
				}
			}
			assert.Equal(t, tt.want, chans)
		})
	}
}

func TestOrder_AlphabeticalTiesKeepSourceOrder(t *testing.T) {
	doc, _, err := epg.Parse(strings.NewReader(`<tv>
  <channel id="b"><display-name>News</display-name></channel>
  <channel id="a"><display-name>news</display-name></channel>
  <channel id="c"><display-name>Arte</display-name></channel>
</tv>`), epg.Options{})
	require.NoError(t, err)

	chs := []m3u.Channel{mk("News A", "a"), mk("Zed", "zz"), mk("News B", "b"), mk("Arte", "c")}
	res := Reconcile(chs, doc, Options{Now: now, Synthesize: true})

	assert.Equal(t, []string{"c", "b", "a", "zz"}, ids(Order(res, OrderAlphabetical)))
}

func TestParseOrderPolicy(t *testing.T) {
	for in, want := range map[string]OrderPolicy{
		"": OrderSource, "none": OrderSource, "alpha": OrderAlphabetical,
		"M3U": OrderPlaylist, "playlist": OrderPlaylist,
	} {
		got, err := ParseOrderPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOrderPolicy("random")
	assert.Error(t, err)
}

func TestWindow(t *testing.T) {
	assert.Nil(t, NewWindow(now, 0))
	var w *Window
	assert.True(t, w.Contains(time.Time{}))

	w = NewWindow(now, 1)
	assert.True(t, w.Contains(now))
	assert.True(t, w.Contains(now.Add(time.Hour)))
	assert.False(t, w.Contains(now.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(now.Add(time.Hour+time.Nanosecond)))
}

func BenchmarkReconcile(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("<tv>")
	const channels, perChannel = 500, 100
	for c := 0; c < channels; c++ {
		fmt.Fprintf(&sb, `<channel id="c%d.tv"><display-name>C%d</display-name></channel>`, c, c)
	}
	for c := 0; c < channels; c++ {
		for p := 0; p < perChannel; p++ {
			fmt.Fprintf(&sb, `<programme start="20240101%02d%02d00 +0000" channel="c%d.tv"><title>t</title></programme>`, p/60, p%60, c)
		}
	}
	sb.WriteString("</tv>")
	doc, _, err := epg.Parse(strings.NewReader(sb.String()), epg.Options{})
	require.NoError(b, err)

	chs := make([]m3u.Channel, 0, channels)
	for c := 0; c < channels; c++ {
		chs = append(chs, mk(fmt.Sprintf("C%d", c), fmt.Sprintf("C%d.TV", c)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Reconcile(chs, doc, Options{Window: NewWindow(now, 24), Now: now})
	}
}
