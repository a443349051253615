package types

import "encoding/json"

// Response is the generic response shape handed back to host callers.
type Response struct {
	Headers  map[string]HeaderValue `json:"headers"`
	Body     string                 `json:"body"`
	Status   Status                 `json:"response"`
	Cookies  []*Cookie              `json:"cookies"`
	Filename string                 `json:"filename,omitempty"`
}

// EmptyResponse is returned for non-blocking calls: no headers, no body and
// no status.
func EmptyResponse() *Response {
	return &Response{
		Headers: map[string]HeaderValue{},
		Cookies: []*Cookie{},
	}
}

// Header returns the first value of the named header, or "".
func (r *Response) Header(name string) string {
	v, ok := r.Headers[name]
	if !ok {
		return ""
	}
	return v.String()
}

// Status is the response code with its reason phrase. The zero value means
// no status is known.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IsZero reports whether no status was recorded.
func (s Status) IsZero() bool {
	return s.Code == 0
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte(`{"code":false,"message":false}`), nil
	}
	type alias Status
	return json.Marshal(alias(s))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code    json.RawMessage `json:"code"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Status{}
	if len(raw.Code) > 0 && raw.Code[0] != 'f' && raw.Code[0] != 'n' {
		if err := json.Unmarshal(raw.Code, &s.Code); err != nil {
			return err
		}
	}
	if len(raw.Message) > 0 && raw.Message[0] == '"' {
		if err := json.Unmarshal(raw.Message, &s.Message); err != nil {
			return err
		}
	}
	return nil
}

// HeaderValue is a response header that holds one or more values. A single
// value is presented as a bare string, several as an ordered list.
type HeaderValue struct {
	values []string
}

// NewHeaderValue builds a header value; order of vals is preserved.
func NewHeaderValue(vals ...string) HeaderValue {
	return HeaderValue{values: append([]string(nil), vals...)}
}

// IsMulti reports whether the header carries more than one value.
func (v HeaderValue) IsMulti() bool { return len(v.values) > 1 }

// Values returns a copy of all values in their original order.
func (v HeaderValue) Values() []string { return append([]string(nil), v.values...) }

// String returns the first value.
func (v HeaderValue) String() string {
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

func (v HeaderValue) MarshalJSON() ([]byte, error) {
	if len(v.values) == 1 {
		return json.Marshal(v.values[0])
	}
	if v.values == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(v.values)
}

func (v *HeaderValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &v.values)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v.values = []string{s}
	return nil
}
