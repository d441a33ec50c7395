package httpapi

// OpInfo describes one cursor operation in GET /ops.
type OpInfo struct {
	Code     uint   `json:"code"`
	Name     string `json:"name"`
	Args     string `json:"args"`
	Category string `json:"category"`
}

// SpaceInfo describes one served key space in GET /spaces.
type SpaceInfo struct {
	Name    string `json:"name"`
	DupSort bool   `json:"dupsort"`
}

// CursorResponse is returned when a cursor is opened.
type CursorResponse struct {
	Cursor uint64 `json:"cursor"`
	Space  string `json:"space"`
}

// GetRequest is the body of POST /cursors/{id}/get. Op is a name such as
// "SET_RANGE" or a numeric code. Key and Value are base64; an absent field
// is a missing argument, "" is an empty byte string.
type GetRequest struct {
	Op    OpParam `json:"op"`
	Key   []byte  `json:"key"`
	Value []byte  `json:"value"`
}

// GetResponse carries the entry the cursor landed on.
type GetResponse struct {
	Key   []byte   `json:"key"`
	Value []byte   `json:"value"`
	Batch [][]byte `json:"batch,omitempty"`
}

// ErrorResponse is returned with every 4xx/5xx status. Code is the
// mdbcursor error code when the failure came from a cursor.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func newErrorResponse(msg string, code int) ErrorResponse {
	return ErrorResponse{Error: msg, Code: code}
}
