package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mdbcursor"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dup := mdbcursor.NewMemSpace(mdbcursor.DupSort)
	require.NoError(t, dup.PutGroup([]byte("a"), []byte("1"), []byte("2")))
	require.NoError(t, dup.PutGroup([]byte("c"), []byte("3"), []byte("4"), []byte("5")))

	plain := mdbcursor.NewMemSpace(mdbcursor.DBDefaults)
	require.NoError(t, plain.Put([]byte("k"), []byte("v")))

	s := NewServer(map[string]mdbcursor.KeySpace{"dup": dup, "plain": plain}, Options{BatchSize: 2})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.CloseAll()
	})
	return s, ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, contentTypeJSON, resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func openCursor(t *testing.T, ts *httptest.Server, space string) uint64 {
	t.Helper()
	var cr CursorResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/spaces/"+space+"/cursors", nil, &cr))
	require.Equal(t, space, cr.Space)
	return cr.Cursor
}

func getURL(ts *httptest.Server, id uint64) string {
	return fmt.Sprintf("%s/cursors/%d/get", ts.URL, id)
}

// rawGet sends a hand-written body so both op spellings can be exercised.
func rawGet(t *testing.T, ts *httptest.Server, id uint64, body string) (int, GetResponse, ErrorResponse) {
	t.Helper()
	resp, err := http.Post(getURL(ts, id), contentTypeJSON, bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var (
		ok  GetResponse
		bad ErrorResponse
	)
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	} else {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&bad))
	}
	return resp.StatusCode, ok, bad
}

func TestOps(t *testing.T) {
	_, ts := newTestServer(t)
	var ops []OpInfo
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/ops", nil, &ops))
	require.Len(t, ops, 18)
	require.Equal(t, OpInfo{Code: 17, Name: "MDB_SET_RANGE", Args: "key", Category: "absolute-seek"}, ops[17])
	require.Equal(t, OpInfo{Code: 3, Name: "MDB_GET_BOTH_RANGE", Args: "key+value", Category: "absolute-seek"}, ops[3])
	require.Equal(t, uint(0), ops[0].Code)
}

func TestSpaces(t *testing.T) {
	_, ts := newTestServer(t)
	var spaces []SpaceInfo
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/spaces", nil, &spaces))
	require.Equal(t, []SpaceInfo{{Name: "dup", DupSort: true}, {Name: "plain"}}, spaces)
}

func TestCursorLifecycle(t *testing.T) {
	s, ts := newTestServer(t)
	id := openCursor(t, ts, "dup")
	require.Equal(t, 1, s.OpenCursors())

	// by name and by code
	code, res, _ := rawGet(t, ts, id, `{"op": "SET_RANGE", "key": "Yg=="}`) // "b"
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "c", string(res.Key))
	require.Equal(t, "3", string(res.Value))

	code, res, _ = rawGet(t, ts, id, `{"op": 9}`) // NEXT_DUP
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "4", string(res.Value))

	code, res, _ = rawGet(t, ts, id, `{"op": "GetMultiple"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"4", "5"}, toStrings(res.Batch))

	code, _, bad := rawGet(t, ts, id, `{"op": "NEXT_DUP"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, int(mdbcursor.ErrNotFound), bad.Code)

	// unpositioned now
	code, _, bad = rawGet(t, ts, id, `{"op": "GET_CURRENT"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, int(mdbcursor.ErrInvalidArgument), bad.Code)

	require.Equal(t, http.StatusOK, do(t, http.MethodDelete, fmt.Sprintf("%s/cursors/%d", ts.URL, id), nil, nil))
	require.Equal(t, 0, s.OpenCursors())
	require.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, fmt.Sprintf("%s/cursors/%d", ts.URL, id), nil, nil))

	code, _, _ = rawGet(t, ts, id, `{"op": "FIRST"}`)
	require.Equal(t, http.StatusNotFound, code)
}

func toStrings(b [][]byte) []string {
	out := make([]string, len(b))
	for i, v := range b {
		out[i] = string(v)
	}
	return out
}

func TestBadRequests(t *testing.T) {
	_, ts := newTestServer(t)
	id := openCursor(t, ts, "plain")

	for name, body := range map[string]string{
		"unknown name": `{"op": "JUMP"}`,
		"unknown code": `{"op": 18}`,
		"negative":     `{"op": -1}`,
		"no op":        `{"key": "aw=="}`,
		"not json":     `op=FIRST`,
		"missing key":  `{"op": "SET"}`,
		"dup op":       `{"op": "FIRST_DUP"}`,
	} {
		t.Run(name, func(t *testing.T) {
			code, _, bad := rawGet(t, ts, id, body)
			require.Equal(t, http.StatusBadRequest, code)
			require.NotEmpty(t, bad.Error)
		})
	}

	// an empty key is a present argument
	code, _, _ := rawGet(t, ts, id, `{"op": "SET_RANGE", "key": ""}`)
	require.Equal(t, http.StatusOK, code)
}

func TestUnknownSpaceAndCursor(t *testing.T) {
	_, ts := newTestServer(t)
	require.Equal(t, http.StatusNotFound, do(t, http.MethodPost, ts.URL+"/spaces/nope/cursors", nil, nil))

	code, _, bad := rawGet(t, ts, 999, `{"op": "FIRST"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, errNoCursor.Error(), bad.Error)

	resp, err := http.Post(ts.URL+"/cursors/abc/get", contentTypeJSON, bytes.NewBufferString(`{"op": 0}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestConcurrentRequests drives one cursor per goroutine and shares one
// cursor between goroutines; the handle lock keeps the latter consistent.
func TestConcurrentRequests(t *testing.T) {
	_, ts := newTestServer(t)
	shared := openCursor(t, ts, "dup")
	code, _, _ := rawGet(t, ts, shared, `{"op": "FIRST"}`)
	require.Equal(t, http.StatusOK, code)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(getURL(ts, shared), contentTypeJSON, bytes.NewBufferString(`{"op": "GET_CURRENT"}`))
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET_CURRENT: status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
}

func TestOpParamMarshal(t *testing.T) {
	b, err := json.Marshal(GetRequest{Op: OpParam{Op: mdbcursor.SetRange, Set: true}})
	require.NoError(t, err)
	var back GetRequest
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, mdbcursor.SetRange, back.Op.Op)
	require.True(t, back.Op.Set)
}
