package httpclient

// Request describes an outbound call.
type Request struct {
	Method string
	// Path is joined to the client's BaseURL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body is an io.Reader, []byte, string, *MultipartBody, or a value that is
	// JSON-encoded.
	Body any
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
