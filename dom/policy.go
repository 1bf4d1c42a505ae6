package dom

import (
	"fmt"
	"io"

	"github.com/microcosm-cc/bluemonday"
)

// Policy names accepted by PolicyByName.
const (
	PolicyNone   = ""
	PolicyUGC    = "ugc"
	PolicyStrict = "strict"
)

// PolicyByName returns the HTML policy applied to untrusted input before it
// becomes the live tree. PolicyNone returns nil.
func PolicyByName(name string) (*bluemonday.Policy, error) {
	switch name {
	case PolicyNone:
		return nil, nil
	case PolicyUGC:
		return bluemonday.UGCPolicy(), nil
	case PolicyStrict:
		return bluemonday.StrictPolicy(), nil
	}
	return nil, fmt.Errorf("dom: unknown html policy %q", name)
}

// ParseSanitized runs r through p, then parses the result. A nil policy
// parses r unchanged.
func ParseSanitized(r io.Reader, p *bluemonday.Policy) (*Document, error) {
	if p == nil {
		return Parse(r)
	}
	return Parse(p.SanitizeReader(r))
}
