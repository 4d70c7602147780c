package transcript

import "time"

// Segment is a timed span of recognized text within a transcript.
// Confidence is nil when the ASR backend reported none; it is never
// substituted with a sentinel value.
type Segment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Transcript is the assembled result of transcribing one session. It is
// derived from segments, recomputed in full on each assembly, and
// persisted as a single JSON file at export time.
type Transcript struct {
	SessionID           string    `json:"session_id"`
	Timestamp           time.Time `json:"timestamp"`
	Language            string    `json:"language,omitempty"`
	LanguageProbability *float64  `json:"language_probability,omitempty"`
	FullText            string    `json:"full_text"`
	Segments            []Segment `json:"segments"`
	WordCount           int       `json:"word_count"`
	Duration            float64   `json:"duration"`
	ConfidenceAverage   float64   `json:"confidence_average"`
	PostProcessed       bool      `json:"post_processed"`
}
