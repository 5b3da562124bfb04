package outlook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/custodia-labs/graphmail/internal/connectors/microsoft"
)

// graphCall is one request seen by mockGraph.
type graphCall struct {
	Method string
	Path   string
	Body   any
}

// mockGraph records requests and replays canned responses in order.
type mockGraph struct {
	calls     []graphCall
	responses []*microsoft.Response
	err       error
}

func (m *mockGraph) Request(_ context.Context, method, path string, body any, _ http.Header) (*microsoft.Response, error) {
	m.calls = append(m.calls, graphCall{Method: method, Path: path, Body: body})
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &microsoft.Response{StatusCode: http.StatusNoContent}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *mockGraph) reply(status int, body string) *mockGraph {
	m.responses = append(m.responses, &microsoft.Response{StatusCode: status, Body: []byte(body)})
	return m
}

func (m *mockGraph) lastCall() graphCall {
	return m.calls[len(m.calls)-1]
}

// bodyJSON marshals a recorded request body for comparison.
func bodyJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
