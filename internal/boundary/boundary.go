// Package boundary decides whether a new document text is a safe pure append
// to a previously parsed text.
//
// A safe append can be tokenized on its own and spliced after the previous
// tokens without changing how the previous text would have been parsed.
package boundary

import (
	"strings"

	"github.com/dshills/mdstream/internal/fence"
)

// Reason explains why a candidate append was rejected
type Reason string

const (
	Accepted           Reason = ""
	ReasonNotPrefix    Reason = "not_prefix"
	ReasonPrevOpenLine Reason = "prev_no_trailing_newline"
	ReasonEmptySuffix  Reason = "empty_suffix"
	ReasonNoLineBreak  Reason = "suffix_without_line_break"
	ReasonOpenLastLine Reason = "suffix_without_trailing_newline"
	ReasonTooFewLines  Reason = "suffix_too_few_lines"
	ReasonBlankFirst   Reason = "suffix_blank_first_line"
	ReasonSetext       Reason = "setext_underline"
	ReasonOpenFence    Reason = "prev_inside_open_fence"
	ReasonOpenBlock    Reason = "prev_block_not_closed"
)

// Detector finds safely re-parseable suffix appends
type Detector struct {
	// FenceWindow bounds the trailing fence scan of the previous text.
	// Zero uses fence.DefaultWindow.
	FenceWindow int
}

// AppendedSegment runs the default Detector
func AppendedSegment(prev, next string) (string, Reason) {
	return Detector{}.Segment(prev, next)
}

// Segment returns the appended suffix of next, or the reason it is not a safe append.
func (d Detector) Segment(prev, next string) (string, Reason) {
	if !strings.HasPrefix(next, prev) {
		return "", ReasonNotPrefix
	}
	if !strings.HasSuffix(prev, "\n") {
		return "", ReasonPrevOpenLine
	}

	segment := next[len(prev):]
	if segment == "" {
		return "", ReasonEmptySuffix
	}
	firstBreak := strings.IndexByte(segment, '\n')
	if firstBreak < 0 {
		return "", ReasonNoLineBreak
	}
	if segment[len(segment)-1] != '\n' {
		return "", ReasonOpenLastLine
	}
	if strings.Count(segment, "\n") < 2 {
		return "", ReasonTooFewLines
	}

	firstLine := strings.TrimSpace(segment[:firstBreak])
	if firstLine == "" {
		return "", ReasonBlankFirst
	}

	lastLine := strings.TrimSpace(lastLineOf(prev))
	if isSetextUnderline(firstLine) && lastLine != "" {
		return "", ReasonSetext
	}

	window := d.FenceWindow
	if window == 0 {
		window = fence.DefaultWindow
	}
	if fence.EndsInsideOpenFenceWindow(prev, window) {
		return "", ReasonOpenFence
	}

	// Paragraphs and lists continue onto the next line unless a blank line closed them.
	if lastLine != "" {
		return "", ReasonOpenBlock
	}

	return segment, Accepted
}

// lastLineOf returns the final line of text, which must end with '\n'
func lastLineOf(text string) string {
	body := text[:len(text)-1]
	return body[strings.LastIndexByte(body, '\n')+1:]
}

func isSetextUnderline(line string) bool {
	if line == "" {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != '-' && line[i] != '=' {
			return false
		}
	}
	return true
}
