package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned by Export for any format outside
// json, txt, and srt.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export formats: the full structure as pretty-printed JSON, the joined
// text only, or numbered SRT subtitle blocks.
const (
	FormatJSON = "json"
	FormatTXT  = "txt"
	FormatSRT  = "srt"
)

// defaultSegmentLength is assumed when a segment carries no explicit end.
const defaultSegmentLength = 3.0

// Export serializes a transcript in the requested format.
func Export(t *Transcript, format string) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal transcript: %w", err)
		}
		return string(data), nil

	case FormatTXT:
		return t.FullText, nil

	case FormatSRT:
		return exportSRT(t), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// exportSRT renders one numbered subtitle block per segment.
func exportSRT(t *Transcript) string {
	var b strings.Builder

	for i, seg := range t.Segments {
		end := seg.End
		if end <= seg.Start {
			end = seg.Start + defaultSegmentLength
		}

		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTime(seg.Start), formatSRTTime(end))
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(seg.Text))
	}

	return b.String()
}

// formatSRTTime renders seconds as zero-padded HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	millis := int(seconds*1000 + 0.5)
	h := millis / 3600000
	millis %= 3600000
	m := millis / 60000
	millis %= 60000
	s := millis / 1000
	ms := millis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
