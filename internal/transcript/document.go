package transcript

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Item types emitted by AWS Transcribe.
const (
	itemPronunciation = "pronunciation"
	itemPunctuation   = "punctuation"
)

// Document is the top-level AWS Transcribe job output JSON.
type Document struct {
	JobName   string  `json:"jobName"`
	AccountID string  `json:"accountId"`
	Status    string  `json:"status"`
	Results   Results `json:"results"`
}

// Results holds the transcript text, per-token items, and diarization data.
type Results struct {
	Transcripts   []TranscriptText `json:"transcripts"`
	Items         []DocumentItem   `json:"items"`
	SpeakerLabels SpeakerLabels    `json:"speaker_labels"`
}

// TranscriptText is the full concatenated transcript.
type TranscriptText struct {
	Transcript string `json:"transcript"`
}

// DocumentItem is one token as it appears on the wire. Timestamps are
// decimal-string seconds and present only for pronunciation items.
type DocumentItem struct {
	Type         string        `json:"type"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative is a candidate token with its confidence score.
type Alternative struct {
	Confidence string `json:"confidence"`
	Content    string `json:"content"`
}

// SpeakerLabels holds the diarization output.
type SpeakerLabels struct {
	Speakers int               `json:"speakers"`
	Segments []DocumentSegment `json:"segments"`
}

// DocumentSegment is one diarization interval on the wire.
type DocumentSegment struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SpeakerLabel string `json:"speaker_label"`
}

// ItemKind distinguishes the two token kinds in a transcript.
type ItemKind int

const (
	Word ItemKind = iota
	Punctuation
)

// Item is a parsed transcript token. Start and End are meaningful only
// when Kind is Word.
type Item struct {
	Kind  ItemKind
	Start float64
	End   float64
	Text  string
}

// Segment is a parsed diarization interval [Start, End], closed on both
// ends. Order is as received; segments may overlap.
type Segment struct {
	Start float64
	End   float64
	Label string
}

// Result is the parsed transcription result consumed by the renderer.
type Result struct {
	Transcript string
	Items      []Item
	Segments   []Segment
}

// Speakers returns the number of distinct speaker labels in the result.
func (r *Result) Speakers() int {
	seen := make(map[string]struct{})
	for _, s := range r.Segments {
		seen[s.Label] = struct{}{}
	}
	return len(seen)
}

// Parse decodes a raw AWS Transcribe result document into a Result.
func Parse(data []byte) (*Result, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript document: %w", err)
	}
	return FromDocument(&doc)
}

// FromDocument converts a decoded Document into the parsed Result form,
// validating the fields the renderer dereferences. A pronunciation item
// without numeric timestamps or any item without alternatives is a
// data-format error.
func FromDocument(doc *Document) (*Result, error) {
	res := &Result{
		Items:    make([]Item, 0, len(doc.Results.Items)),
		Segments: make([]Segment, 0, len(doc.Results.SpeakerLabels.Segments)),
	}

	if len(doc.Results.Transcripts) > 0 {
		res.Transcript = doc.Results.Transcripts[0].Transcript
	}

	for i, it := range doc.Results.Items {
		if len(it.Alternatives) == 0 {
			return nil, fmt.Errorf("item %d: no alternatives", i)
		}
		content := it.Alternatives[0].Content

		switch it.Type {
		case itemPronunciation:
			start, err := strconv.ParseFloat(it.StartTime, 64)
			if err != nil {
				return nil, fmt.Errorf("item %d: bad start_time %q: %w", i, it.StartTime, err)
			}
			end, err := strconv.ParseFloat(it.EndTime, 64)
			if err != nil {
				return nil, fmt.Errorf("item %d: bad end_time %q: %w", i, it.EndTime, err)
			}
			res.Items = append(res.Items, Item{Kind: Word, Start: start, End: end, Text: content})
		case itemPunctuation:
			res.Items = append(res.Items, Item{Kind: Punctuation, Text: content})
		default:
			return nil, fmt.Errorf("item %d: unknown type %q", i, it.Type)
		}
	}

	for i, seg := range doc.Results.SpeakerLabels.Segments {
		start, err := strconv.ParseFloat(seg.StartTime, 64)
		if err != nil {
			return nil, fmt.Errorf("segment %d: bad start_time %q: %w", i, seg.StartTime, err)
		}
		end, err := strconv.ParseFloat(seg.EndTime, 64)
		if err != nil {
			return nil, fmt.Errorf("segment %d: bad end_time %q: %w", i, seg.EndTime, err)
		}
		res.Segments = append(res.Segments, Segment{Start: start, End: end, Label: seg.SpeakerLabel})
	}

	return res, nil
}
