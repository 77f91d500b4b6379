package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	TraceID    string
	Duration   time.Duration
}

// ValidJSON reports whether the body is a well-formed JSON document.
func (r Response) ValidJSON() bool {
	return gjson.ValidBytes(r.Body)
}

// DecodeError returns an error when the body is not valid JSON.
func (r Response) DecodeError() error {
	if r.ValidJSON() {
		return nil
	}
	snippet := string(r.Body)
	if len(snippet) > 64 {
		snippet = snippet[:64] + "..."
	}
	return fmt.Errorf("decoding response body (status %d): invalid JSON %q", r.StatusCode, snippet)
}

// Field looks up a dotted path such as "data.user.id". The second return is
// false when the path is absent or null, so callers never have to guess at
// the shape of an optional field.
func (r Response) Field(path string) (string, bool) {
	res := gjson.GetBytes(r.Body, path)
	if !res.Exists() || res.Type == gjson.Null {
		return "", false
	}
	return res.String(), true
}

// FieldEquals reports whether path holds a string equal to want.
func (r Response) FieldEquals(path, want string) bool {
	res := gjson.GetBytes(r.Body, path)
	return res.Type == gjson.String && res.Str == want
}

// Number looks up a numeric field at path.
func (r Response) Number(path string) (float64, bool) {
	res := gjson.GetBytes(r.Body, path)
	if res.Type != gjson.Number {
		return 0, false
	}
	return res.Num, true
}

// HasID reports whether the array at path holds an object whose "id" equals
// id, comparing string and numeric ids by their text.
func (r Response) HasID(path, id string) bool {
	if id == "" {
		return false
	}
	for _, item := range gjson.GetBytes(r.Body, path).Array() {
		if v := item.Get("id"); v.Exists() && v.String() == id {
			return true
		}
	}
	return false
}

// Lines returns the non-blank lines of a plain text body.
func (r Response) Lines() []string {
	var out []string
	for line := range strings.SplitSeq(string(r.Body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
