package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind selects the output schema a completion is parsed into.
type Kind int

const (
	KindQuote Kind = iota + 1
	KindHashtag
	KindFact
)

var (
	// ErrUnknownSchema is returned for a schema key with no Kind.
	ErrUnknownSchema = errors.New("llm: unknown output schema")
	// ErrMalformed is returned when a completion does not hold a valid object.
	ErrMalformed = errors.New("llm: malformed completion")
)

var kindNames = map[string]Kind{
	"quote":   KindQuote,
	"hashtag": KindHashtag,
	"fact":    KindFact,
}

// ParseKind maps a schema key ("quote", "hashtag", "fact") to its Kind.
func ParseKind(key string) (Kind, error) {
	k, ok := kindNames[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSchema, key)
	}
	return k, nil
}

func (k Kind) String() string {
	for name, v := range kindNames {
		if v == k {
			return name
		}
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Output is one of Quote, Fact or Hashtag.
type Output interface {
	Kind() Kind
}

type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

type Fact struct {
	Text string `json:"text"`
}

type Hashtag struct {
	Hashtags []string `json:"hashtags"`
}

func (Quote) Kind() Kind   { return KindQuote }
func (Fact) Kind() Kind    { return KindFact }
func (Hashtag) Kind() Kind { return KindHashtag }

const instructionsPrefix = "The output should be formatted as a JSON instance that conforms to the JSON schema below. " +
	"Answer with the JSON object only.\n\n"

var schemas = map[Kind]string{
	KindQuote: `{"type": "object", "properties": {` +
		`"text": {"type": "string", "description": "quote to be displayed."}, ` +
		`"author": {"type": "string", "description": "person the quote is attributed to."}}, ` +
		`"required": ["text", "author"]}`,
	KindFact: `{"type": "object", "properties": {` +
		`"text": {"type": "string", "description": "fact to be displayed."}}, ` +
		`"required": ["text"]}`,
	KindHashtag: `{"type": "object", "properties": {` +
		`"hashtags": {"type": "array", "items": {"type": "string"}, "description": "list of hashtags to be used in the post."}}, ` +
		`"required": ["hashtags"]}`,
}

// FormatInstructions returns the text appended to a prompt so the model
// answers with an object matching kind.
func FormatInstructions(kind Kind) (string, error) {
	s, ok := schemas[kind]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnknownSchema, kind)
	}
	return instructionsPrefix + s, nil
}

// Parse decodes the first JSON object found in completion into the type for kind.
func Parse(kind Kind, completion string) (Output, error) {
	if _, ok := schemas[kind]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownSchema, kind)
	}
	start := strings.IndexByte(completion, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrMalformed, truncate(completion, 80))
	}
	dec := json.NewDecoder(strings.NewReader(completion[start:]))

	switch kind {
	case KindQuote:
		var q Quote
		if err := dec.Decode(&q); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		q.Text, q.Author = strings.TrimSpace(q.Text), strings.TrimSpace(q.Author)
		if q.Text == "" {
			return nil, fmt.Errorf("%w: quote text is empty", ErrMalformed)
		}
		return q, nil
	case KindFact:
		var f Fact
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		f.Text = strings.TrimSpace(f.Text)
		if f.Text == "" {
			return nil, fmt.Errorf("%w: fact text is empty", ErrMalformed)
		}
		return f, nil
	case KindHashtag:
		// older prompts used the singular key
		var raw struct {
			Hashtags []string `json:"hashtags"`
			Hashtag  []string `json:"hashtag"`
		}
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		tags := raw.Hashtags
		if len(tags) == 0 {
			tags = raw.Hashtag
		}
		tags = NormalizeHashtags(tags)
		if len(tags) == 0 {
			return nil, fmt.Errorf("%w: no hashtags", ErrMalformed)
		}
		return Hashtag{Hashtags: tags}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownSchema, kind)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
