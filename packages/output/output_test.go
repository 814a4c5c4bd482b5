package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/fetcher/packages/bench"
	"github.com/abdul-hamid-achik/fetcher/packages/history"
	"github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
)

func sampleResponse() *http.Response {
	resp := &http.Response{
		StatusCode: 200,
		Status:     "200 OK",
		Headers:    map[string]string{"Content-Type": "application/json", "X-Trace": "abc"},
		Body:       []byte(`{"id":1}`),
		Duration:   42 * time.Millisecond,
		Request:    http.NewRequest("GET", "http://api.test/users/1"),
	}
	return resp
}

func TestNew(t *testing.T) {
	f, err := New("", Options{})
	require.NoError(t, err)
	assert.IsType(t, &ConsoleFormatter{}, f)

	f, err = New("json", Options{})
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("xml", Options{})
	assert.Error(t, err)
}

func TestConsoleFormatter_FormatResponse(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatResponse(sampleResponse())

	out := buf.String()
	assert.Contains(t, out, "GET http://api.test/users/1")
	assert.Contains(t, out, "200 OK (42ms)")
	assert.Contains(t, out, "\"id\": 1")
	assert.NotContains(t, out, "X-Trace")

	buf.Reset()
	NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true)).FormatResponse(sampleResponse())
	assert.Contains(t, buf.String(), "X-Trace: abc")
}

func TestConsoleFormatter_FormatResponseData(t *testing.T) {
	var buf bytes.Buffer
	resp := sampleResponse()
	resp.SetData(map[string]any{"name": "ada"})

	NewConsoleFormatter(WithWriter(&buf), WithNoColor(true)).FormatResponse(resp)
	assert.Contains(t, buf.String(), "\"name\": \"ada\"")
	assert.NotContains(t, buf.String(), "\"id\"")
}

func TestConsoleFormatter_FormatError(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatError(errors.New("connection refused"))
	assert.Equal(t, "Error: connection refused\n", buf.String())

	buf.Reset()
	f.FormatError(&middleware.HTTPStatusError{
		Message:  "Unprocessable Entity",
		Response: &http.Response{StatusCode: 422},
		Data:     map[string]any{"errors": []any{"name"}},
		HasData:  true,
	})
	assert.Contains(t, buf.String(), "422 Unprocessable Entity")
	assert.Contains(t, buf.String(), "{object with 1 keys}")
}

func TestConsoleFormatter_FormatBench(t *testing.T) {
	var buf bytes.Buffer
	s := &bench.Summary{
		Duration: 2 * time.Second,
		Total:    10,
		Errors:   1,
		RPS:      5,
		Statuses: map[int]int64{200: 9, 0: 1},
	}
	results := []bench.ThresholdResult{{Name: "p95", Passed: false, Expected: "< 100ms", Actual: "150ms"}}

	NewConsoleFormatter(WithWriter(&buf), WithNoColor(true)).FormatBench(s, results)
	out := buf.String()
	assert.Contains(t, out, "Requests:   10 in 2s (5.0/s)")
	assert.Contains(t, out, "network error: 1")
	assert.Contains(t, out, "200: 9")
	assert.Contains(t, out, "✗ p95 < 100ms (actual 150ms)")
}

func TestConsoleFormatter_FormatHistory(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatHistory(nil)
	assert.Equal(t, "No history entries\n", buf.String())

	buf.Reset()
	f.FormatHistory([]*history.Entry{{ID: 7, Method: "POST", URL: "http://api.test/users", Status: 201, CreatedAt: time.Now()}})
	assert.Contains(t, buf.String(), "#7")
	assert.Contains(t, buf.String(), "201 POST   http://api.test/users")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "[array with 2 items]", formatValue([]any{1, 2}, 10))
	assert.Equal(t, "abc...", formatValue("abcdef", 3))
	assert.Equal(t, "42", formatValue(42, 10))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	resp := sampleResponse()
	resp.SetData(map[string]any{"id": float64(1)})
	f.FormatResponse(resp)

	var got JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 200, got.StatusCode)
	assert.Equal(t, float64(42), got.Duration)
	assert.Equal(t, map[string]any{"id": float64(1)}, got.Data)
	assert.Empty(t, got.Body)
	require.NotNil(t, got.Request)
	assert.Equal(t, "http://api.test/users/1", got.Request.URL)

	buf.Reset()
	f.FormatError(&middleware.HTTPStatusError{Message: "Not Found", Response: &http.Response{StatusCode: 404}})
	var gotErr JSONError
	require.NoError(t, json.Unmarshal(buf.Bytes(), &gotErr))
	assert.Equal(t, JSONError{Error: "Not Found", StatusCode: 404}, gotErr)

	buf.Reset()
	f.FormatHistory(nil)
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatBench(t *testing.T) {
	var buf bytes.Buffer
	s := &bench.Summary{Total: 3, P95: 1500 * time.Microsecond, Statuses: map[int]int64{200: 3}}
	NewJSONFormatter(JSONWithWriter(&buf)).FormatBench(s, nil)

	var got JSONBench
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, int64(3), got.Total)
	assert.Equal(t, 1.5, got.Latency["p95"])
	assert.Equal(t, int64(3), got.Statuses[200])
}

func TestFormatVersion(t *testing.T) {
	info := VersionInfo{Version: "1.2.0", BuildTime: "2026-01-02", GoVersion: "go1.25.0", Platform: "linux/amd64"}

	var buf bytes.Buffer
	NewConsoleFormatter(WithWriter(&buf), WithNoColor(true)).FormatVersion(info)
	assert.Equal(t, "fetcher version 1.2.0\n", buf.String())

	buf.Reset()
	NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true)).FormatVersion(info)
	assert.Contains(t, buf.String(), "platform: linux/amd64")

	buf.Reset()
	NewJSONFormatter(JSONWithWriter(&buf)).FormatVersion(info)
	var got VersionInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, info, got)
}
