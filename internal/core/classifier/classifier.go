package classifier

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// DocType is the coarse document category driving pipeline dispatch.
type DocType int

const (
	DocOther DocType = iota
	DocPDF
	DocHTML
)

func (t DocType) String() string {
	switch t {
	case DocPDF:
		return "pdf"
	case DocHTML:
		return "html"
	default:
		return "other"
	}
}

// sniffLimit bounds how much of the document the classifier may inspect.
const sniffLimit = 8192

// Classifier determines the document category from content sniffing alone,
// ignoring any client-declared type. Classification never fails; anything
// unrecognized falls through to DocOther.
type Classifier struct {
	// htmlTagHeuristic enables the secondary sniff that decodes a bounded
	// prefix and looks for a literal <html>...</html> tag pair when the
	// media subtype alone is ambiguous.
	htmlTagHeuristic bool
}

func New(htmlTagHeuristic bool) *Classifier {
	return &Classifier{htmlTagHeuristic: htmlTagHeuristic}
}

// Classify sniffs a bounded prefix of content. The caller keeps the full
// byte slice, so there is no stream position to restore.
func (c *Classifier) Classify(content []byte) DocType {
	prefix := content
	if len(prefix) > sniffLimit {
		prefix = prefix[:sniffLimit]
	}

	mtype := mimetype.Detect(prefix)

	if mtype.Is("application/pdf") {
		return DocPDF
	}
	if mtype.Is("text/html") {
		return DocHTML
	}

	if c.htmlTagHeuristic && isTextual(mtype) && containsHTMLTagPair(prefix) {
		return DocHTML
	}

	return DocOther
}

// MediaType returns the sniffed media type without parameters.
func (c *Classifier) MediaType(content []byte) string {
	prefix := content
	if len(prefix) > sniffLimit {
		prefix = prefix[:sniffLimit]
	}
	mt := mimetype.Detect(prefix).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

func isTextual(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// containsHTMLTagPair decodes the prefix with the detected text encoding and
// checks for opening and closing html tags.
func containsHTMLTagPair(prefix []byte) bool {
	enc, _, _ := charset.DetermineEncoding(prefix, "")
	decoded, _, err := transform.Bytes(enc.NewDecoder(), prefix)
	if err != nil {
		decoded = prefix
	}
	lower := strings.ToLower(string(decoded))
	return strings.Contains(lower, "<html") && strings.Contains(lower, "</html>")
}
