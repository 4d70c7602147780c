package transcript

import "strings"

// Assemble merges ordered segments into a transcript. Blank segments are
// skipped when joining text, duration spans from the earliest start to
// the latest end, and the confidence average covers only segments that
// carry a positive reported confidence.
func Assemble(segments []Segment) Transcript {
	t := Transcript{
		Segments: segments,
	}
	if t.Segments == nil {
		t.Segments = []Segment{}
	}

	var parts []string
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	t.FullText = strings.Join(parts, " ")
	t.WordCount = len(strings.Fields(t.FullText))

	if len(segments) > 0 {
		minStart := segments[0].Start
		maxEnd := segments[0].End
		for _, seg := range segments[1:] {
			if seg.Start < minStart {
				minStart = seg.Start
			}
			if seg.End > maxEnd {
				maxEnd = seg.End
			}
		}
		if maxEnd > minStart {
			t.Duration = maxEnd - minStart
		}
	}

	var sum float64
	var count int
	for _, seg := range segments {
		if seg.Confidence != nil && *seg.Confidence > 0 {
			sum += *seg.Confidence
			count++
		}
	}
	if count > 0 {
		t.ConfidenceAverage = sum / float64(count)
	}

	return t
}
