package summarize

// Request is the body of POST /summarize. Exactly one of Text and URL is set.
type Request struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
	// MaxChunkSize overrides the configured segment size bound.
	MaxChunkSize *int `json:"max_chunk_size,omitempty"`
	// IncludeSegments adds per-segment detail to the response.
	IncludeSegments bool `json:"include_segments,omitempty"`
}

// Response is the body of a successful summarization.
type Response struct {
	Summary      string       `json:"summary"`
	SegmentCount int          `json:"segment_count"`
	DurationMS   int64        `json:"duration_ms"`
	SourceURL    string       `json:"source_url,omitempty"`
	Title        string       `json:"title,omitempty"`
	Segments     []SegmentDTO `json:"segments,omitempty"`
}

// SegmentDTO describes one segment and its partial summary.
type SegmentDTO struct {
	Index     int    `json:"index"`
	Length    int    `json:"length"`
	Oversized bool   `json:"oversized"`
	Partial   string `json:"partial"`
}
