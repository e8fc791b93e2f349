package tags

import "testing"

func TestFiletypeFor(t *testing.T) {
	tests := []struct {
		path    string
		tagType string
		want    string
	}{
		{"a/b/song.mp3", "MP3", "mp3"},
		{"song.ogg", "OGG", "ogg"},
		{"song.flac", "FLAC", "flac"},
		{"song.m4a", "M4A", "m4a"},
		{"song.opus", "", "opus"},
		{"song.OGG", "", "ogg"},
	}

	for _, tt := range tests {
		if got := FiletypeFor(tt.path, tt.tagType); got != tt.want {
			t.Errorf("FiletypeFor(%q, %q) = %q, want %q", tt.path, tt.tagType, got, tt.want)
		}
	}
}

func TestChooseMode(t *testing.T) {
	tests := []struct {
		name        string
		stream      int
		format      int
		want        string
	}{
		{"no data", 0, 0, "CBR"},
		{"matching rates", 192, 192, "CBR"},
		{"small jitter", 192, 195, "CBR"},
		{"diverging rates", 128, 211, "VBR"},
		{"stream only", 192, 0, "CBR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseMode(tt.stream, tt.format); got != tt.want {
				t.Errorf("ChooseMode(%d, %d) = %q, want %q", tt.stream, tt.format, got, tt.want)
			}
		})
	}
}

func TestRawText(t *testing.T) {
	if got := rawText("  Conductor  "); got != "Conductor" {
		t.Errorf("rawText(string) = %q", got)
	}
	if got := rawText(42); got != "" {
		t.Errorf("rawText(int) = %q, want empty", got)
	}
}
