package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-den/jsongrammar/api"
	"github.com/ai-den/jsongrammar/envconfig"
	"github.com/ai-den/jsongrammar/gbnf"
	"github.com/ai-den/jsongrammar/version"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func Test_Routes(t *testing.T) {
	type testCase struct {
		Name     string
		Method   string
		Path     string
		Body     func(t *testing.T) io.Reader
		Setup    func(t *testing.T, req *http.Request)
		Expected func(t *testing.T, resp *http.Response)
	}

	testCases := []testCase{
		{
			Name:   "Version Handler",
			Method: http.MethodGet,
			Path:   "/api/version",
			Expected: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.JSONEq(t, `{"version": "`+version.Version+`"}`, string(body))
			},
		},
		{
			Name:   "Heartbeat",
			Method: http.MethodHead,
			Path:   "/",
			Expected: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			},
		},
		{
			Name:   "Grammar Handler",
			Method: http.MethodPost,
			Path:   "/api/grammar",
			Body: func(t *testing.T) io.Reader {
				return jsonBody(t, api.GrammarRequest{
					Schema:  json.RawMessage(`{"type": "object", "properties": {"name": {"type": "string"}}}`),
					Options: map[string]any{"root_name": "Person"},
				})
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var gr api.GrammarResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&gr))
				assert.Equal(t, "Person", gr.Root)
				assert.Equal(t, 4, gr.Productions)
				assert.True(t, strings.HasPrefix(gr.Grammar, "root ::= space Person\n"), gr.Grammar)
				assert.NoError(t, gbnf.ValidateGrammar(gr.Grammar))
			},
		},
		{
			Name:   "Grammar Handler Whitespace",
			Method: http.MethodPost,
			Path:   "/api/grammar",
			Body: func(t *testing.T) io.Reader {
				return jsonBody(t, api.GrammarRequest{
					Schema:  json.RawMessage(`{"type": "integer"}`),
					Options: map[string]any{"whitespace": "none"},
				})
			},
			Expected: func(t *testing.T, resp *http.Response) {
				var gr api.GrammarResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&gr))
				assert.Equal(t, "root ::= space integer\ninteger ::= \"-\"? ([0-9] | [1-9] [0-9]*)\nspace ::= \"\"\n", gr.Grammar)
			},
		},
		{
			Name:   "Grammar Handler Unsupported",
			Method: http.MethodPost,
			Path:   "/api/grammar",
			Body: func(t *testing.T) io.Reader {
				return strings.NewReader(`{"schema": {"type": "object", "properties": {"when": {"type": "date"}}}}`)
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var er api.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
				assert.Equal(t, api.ErrCodeUnsupportedSchema, er.Code)
				assert.Equal(t, "#/properties/when", er.Data["path"])
			},
		},
		{
			Name:   "Grammar Handler Unresolved",
			Method: http.MethodPost,
			Path:   "/api/grammar",
			Body: func(t *testing.T) io.Reader {
				return strings.NewReader(`{"schema": {"$ref": "#/$defs/Nope"}}`)
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var er api.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
				assert.Equal(t, api.ErrCodeUnresolvedReference, er.Code)
			},
		},
		{
			Name:   "Grammar Handler Missing Schema",
			Method: http.MethodPost,
			Path:   "/api/grammar",
			Body: func(t *testing.T) io.Reader {
				return strings.NewReader(`{}`)
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var er api.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
				assert.Equal(t, api.ErrCodeMalformedSchema, er.Code)
				assert.Equal(t, "schema is required", er.Message)
			},
		},
		{
			Name:   "Grammar Handler Bad Options",
			Method: http.MethodPost,
			Path:   "/api/grammar",
			Body: func(t *testing.T) io.Reader {
				return strings.NewReader(`{"schema": {}, "options": {"whitespace": "tabs"}}`)
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var er api.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
				assert.Equal(t, api.ErrCodeInvalidOptions, er.Code)
			},
		},
		{
			Name:   "Check Handler",
			Method: http.MethodPost,
			Path:   "/api/check",
			Body: func(t *testing.T) io.Reader {
				return jsonBody(t, api.CheckRequest{
					Schema: json.RawMessage(`{"type": "object", "properties": {"a": {"type": "integer"}, "b": {"type": "string", "default": ""}}}`),
					Instances: []string{
						`{"a": 1}`,
						`{"a": 1, "b": "x"}`,
						`{"b": "x", "a": 1}`,
						`{"b": "x"}`,
						`not json`,
					},
				})
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var cr api.CheckResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&cr))
				assert.Equal(t, "object-1", cr.Root)
				require.Len(t, cr.Results, 5)

				accepted := []bool{true, true, false, false, false}
				valid := []bool{true, true, true, true, false}
				for i, r := range cr.Results {
					assert.Equal(t, accepted[i], r.Accepted, i)
					assert.Equal(t, valid[i], r.Valid, i)
					assert.Equal(t, !valid[i], r.Error != "", i)
				}
			},
		},
		{
			Name:   "Check Handler Invalid Schema",
			Method: http.MethodPost,
			Path:   "/api/check",
			Body: func(t *testing.T) io.Reader {
				return strings.NewReader(`{"schema": {"type": "string", "minLength": -1}, "instances": ["\"a\""]}`)
			},
			Expected: func(t *testing.T, resp *http.Response) {
				require.Equal(t, http.StatusBadRequest, resp.StatusCode)

				var er api.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
				assert.Equal(t, api.ErrCodeMalformedSchema, er.Code)
			},
		},
		{
			Name:   "Request ID",
			Method: http.MethodGet,
			Path:   "/api/version",
			Setup: func(t *testing.T, req *http.Request) {
				req.Header.Set(requestIDHeader, "6f1c1fd4-2a52-4bb4-9f38-6e3b1c1b0a7e")
			},
			Expected: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, "6f1c1fd4-2a52-4bb4-9f38-6e3b1c1b0a7e", resp.Header.Get(requestIDHeader))
			},
		},
		{
			Name:   "Generated Request ID",
			Method: http.MethodGet,
			Path:   "/api/version",
			Setup: func(t *testing.T, req *http.Request) {
				req.Header.Set(requestIDHeader, "not-a-uuid")
			},
			Expected: func(t *testing.T, resp *http.Response) {
				id := resp.Header.Get(requestIDHeader)
				assert.Len(t, id, 36)
				assert.NotEqual(t, "not-a-uuid", id)
			},
		},
		{
			Name:   "CORS Preflight",
			Method: http.MethodOptions,
			Path:   "/api/grammar",
			Setup: func(t *testing.T, req *http.Request) {
				req.Header.Set("Origin", "http://localhost:3000")
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			},
			Expected: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
				assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
			},
		},
		{
			Name:   "CORS Disallowed Origin",
			Method: http.MethodGet,
			Path:   "/api/version",
			Setup: func(t *testing.T, req *http.Request) {
				req.Header.Set("Origin", "http://evil.example.com")
			},
			Expected: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			},
		},
	}

	t.Setenv("JSONGRAMMAR_ORIGINS", "")
	t.Setenv("JSONGRAMMAR_WHITESPACE", "")
	envconfig.LoadConfig()

	s := NewServer()
	router := s.GenerateRoutes()

	httpSrv := httptest.NewServer(router)
	t.Cleanup(httpSrv.Close)

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			var body io.Reader
			if tc.Body != nil {
				body = tc.Body(t)
			}

			req, err := http.NewRequestWithContext(context.Background(), tc.Method, httpSrv.URL+tc.Path, body)
			require.NoError(t, err)

			if tc.Setup != nil {
				tc.Setup(t, req)
			}

			resp, err := httpSrv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			if tc.Expected != nil {
				tc.Expected(t, resp)
			}
		})
	}
}

func TestDefaultWhitespace(t *testing.T) {
	t.Setenv("JSONGRAMMAR_WHITESPACE", "flexible")
	envconfig.LoadConfig()
	t.Cleanup(envconfig.LoadConfig)

	opts, err := compilerOptions(nil)
	require.NoError(t, err)
	require.Len(t, opts, 1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/grammar", strings.NewReader(`{"schema": {"type": "boolean"}}`))

	NewServer().GrammarHandler(c)
	require.Equal(t, http.StatusOK, w.Code)

	var gr api.GrammarResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gr))
	assert.Contains(t, gr.Grammar, `space ::= (" " | "\t" | "\n" | "\r")*`)
}
