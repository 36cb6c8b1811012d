package upload

import (
	"mime"
	"strings"

	"github.com/hsarchitect/folio/media"
)

const (
	DefaultMaxFiles    = 3
	DefaultMaxFileSize = 20 << 20
	// HardMaxFiles caps any configured batch size.
	HardMaxFiles = 10
)

var DefaultFieldNames = []string{"files", "files[]"}

// Policy is applied to each file part as it streams in.
type Policy struct {
	MaxFiles         int
	MaxFileSize      int64
	AcceptedPrefixes []string
	// FieldNames lists the form fields that carry files. Files under any other
	// field are drained and reported with VALIDATION_ERROR.
	FieldNames []string
	// Strict turns FILE_TOO_LARGE and TOO_MANY_FILES into batch-fatal errors.
	Strict bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxFiles <= 0 {
		p.MaxFiles = DefaultMaxFiles
	}
	if p.MaxFiles > HardMaxFiles {
		p.MaxFiles = HardMaxFiles
	}
	if p.MaxFileSize <= 0 {
		p.MaxFileSize = DefaultMaxFileSize
	}
	if len(p.AcceptedPrefixes) == 0 {
		p.AcceptedPrefixes = []string{"image/", media.VideoContentType}
	}
	if len(p.FieldNames) == 0 {
		p.FieldNames = DefaultFieldNames
	}
	return p
}

// Accepts reports whether a declared content type may be processed. An entry
// ending in "/" matches the whole top-level type, anything else must match
// exactly. Only types the transcoder knows how to handle are ever accepted.
func (p Policy) Accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || (!media.IsImage(ct) && !media.IsVideo(ct)) {
		return false
	}

	for _, prefix := range p.AcceptedPrefixes {
		prefix = strings.ToLower(prefix)
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(ct, prefix) {
				return true
			}
			continue
		}
		if ct == prefix {
			return true
		}
	}

	return false
}

func (p Policy) acceptsField(name string) bool {
	for _, f := range p.FieldNames {
		if f == name {
			return true
		}
	}
	return false
}

// declaredType extracts the bare media type from a part's Content-Type header.
func declaredType(header string) string {
	if header == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}
