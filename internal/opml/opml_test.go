package opml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []Entry
		wantErr bool
	}{
		{
			name: "flat and nested feeds",
			doc: `<?xml version="1.0"?>
<opml version="1.0">
  <body>
    <outline text="YouTube Subscriptions" title="YouTube Subscriptions">
      <outline text="Gopher Talks" title="Gopher Talks" type="rss"
        xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123"/>
      <outline text="Only Text" type="rss"
        xmlUrl="https://www.youtube.com/feeds/videos.xml?playlist_id=PLxyz789"/>
    </outline>
    <outline text="Top" type="rss" xmlUrl="https://www.youtube.com/feeds/videos.xml?channel_id=UCtop"
      htmlUrl="https://www.youtube.com/channel/UCtop"/>
  </body>
</opml>`,
			want: []Entry{
				{Title: "Gopher Talks", FeedURL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123"},
				{Title: "Only Text", FeedURL: "https://www.youtube.com/feeds/videos.xml?playlist_id=PLxyz789"},
				{Title: "Top", FeedURL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCtop", HTMLURL: "https://www.youtube.com/channel/UCtop"},
			},
		},
		{
			name: "duplicates collapsed and empty folders skipped",
			doc: `<opml version="2.0"><body>
  <outline text="Empty"/>
  <outline text="A" xmlUrl="https://example.com/a"/>
  <outline text="A again" xmlUrl=" https://example.com/a "/>
</body></opml>`,
			want: []Entry{{Title: "A", FeedURL: "https://example.com/a"}},
		},
		{
			name:    "not xml",
			doc:     "hello",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.doc))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExportParse(t *testing.T) {
	entries := []Entry{
		{Title: "Gopher Talks", FeedURL: "https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123"},
		{Title: "Series & more", FeedURL: "https://www.youtube.com/feeds/videos.xml?playlist_id=PLxyz789"},
	}
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	data, err := Export("vidlib subscriptions", entries, created)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Errorf("missing xml header:\n%s", data)
	}
	if !bytes.Contains(data, []byte("<dateCreated>Sat, 01 Mar 2025 12:00:00 +0000</dateCreated>")) {
		t.Errorf("missing creation date:\n%s", data)
	}

	got, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("exported entries mismatch (-want +got):\n%s", diff)
	}
}
