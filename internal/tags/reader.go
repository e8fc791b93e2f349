// Package tags reads the normalized tag record the catalog imports from.
// Tag fields come from the embedded metadata (ID3/Vorbis/MP4 via
// dhowden/tag); audio properties come from ffprobe when it is available.
package tags

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/franz/music-catalog/internal/util"
)

// Record is the normalized tag record for one audio file.
type Record struct {
	Artist    string
	Album     string
	Title     string
	Group     string
	Conductor string
	Composer  string

	Track      int
	TrackTotal int
	Year       int

	// Audio properties, zero when ffprobe is unavailable
	Length  int    // seconds
	Bitrate int    // kbps
	Mode    string // CBR, VBR or ABR

	Filetype string // mp3, ogg, opus, m4a, flac
}

// Reader produces a Record for an audio file path. The reconciliation
// engine depends only on this interface; tests substitute a fake.
type Reader interface {
	Read(path string) (*Record, error)
}

// FileReader is the production Reader.
type FileReader struct{}

// Read reads the tag record for path. An unreadable file maps to
// util.ErrPermission; a file whose content cannot be parsed as a
// supported audio format maps to util.ErrCorrupt.
func (FileReader) Read(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("failed to open %s: %w", path, util.ErrPermission)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("tag read error for %s: %w", path, util.ErrCorrupt)
	}

	rec := &Record{
		Artist:   m.Artist(),
		Album:    m.Album(),
		Title:    m.Title(),
		Group:    m.AlbumArtist(),
		Composer: m.Composer(),
		Year:     m.Year(),
		Filetype: FiletypeFor(path, string(m.FileType())),
	}
	rec.Track, rec.TrackTotal = m.Track()

	// Conductor has no accessor; pull it from the raw frame map.
	// TPE3 is ID3v2, the rest cover Vorbis and MP4 conventions.
	raw := m.Raw()
	for _, key := range []string{"TPE3", "CONDUCTOR", "conductor", "\xa9con"} {
		if v, ok := raw[key]; ok {
			if s := rawText(v); s != "" {
				rec.Conductor = s
				break
			}
		}
	}

	if info, err := RunFFprobe(path); err == nil {
		fillProps(rec, info)
	}

	return rec, nil
}

// rawText extracts a printable string from a raw tag frame value
func rawText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	}
	return ""
}

// FiletypeFor derives the catalog filetype from the parsed tag format,
// falling back to the file extension
func FiletypeFor(path, tagFileType string) string {
	switch strings.ToUpper(tagFileType) {
	case "MP3":
		return "mp3"
	case "OGG":
		return "ogg"
	case "FLAC":
		return "flac"
	case "M4A", "M4B", "M4P", "ALAC", "AAC":
		return "m4a"
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// fillProps copies duration, bitrate and encoding mode out of an
// ffprobe result
func fillProps(rec *Record, info *FFprobeInfo) {
	var formatKbps int
	if info.Format != nil {
		var durationSec float64
		fmt.Sscanf(info.Format.Duration, "%f", &durationSec)
		rec.Length = int(durationSec)

		var bitrate int
		fmt.Sscanf(info.Format.BitRate, "%d", &bitrate)
		formatKbps = bitrate / 1000
	}

	var streamKbps int
	if len(info.Streams) > 0 {
		var bitrate int
		fmt.Sscanf(info.Streams[0].BitRate, "%d", &bitrate)
		streamKbps = bitrate / 1000
	}

	if streamKbps > 0 {
		rec.Bitrate = streamKbps
	} else {
		rec.Bitrate = formatKbps
	}
	rec.Mode = ChooseMode(streamKbps, formatKbps)
}

// ChooseMode guesses the encoding mode from the stream and container
// bitrates. A stream rate that diverges from the container average
// indicates variable-rate encoding; ffprobe exposes nothing better
// without a full packet scan.
func ChooseMode(streamKbps, formatKbps int) string {
	if streamKbps == 0 || formatKbps == 0 {
		return "CBR"
	}
	diff := streamKbps - formatKbps
	if diff < 0 {
		diff = -diff
	}
	if diff*20 > formatKbps {
		return "VBR"
	}
	return "CBR"
}
