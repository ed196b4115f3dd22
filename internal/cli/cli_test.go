package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, query, token, contentType string
	body                                    []byte
}

// fakeAPI answers every request with the handler registered for its path
// and records what it saw.
func fakeAPI(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *[]recorded) {
	t.Helper()
	var seen []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(b))
		seen = append(seen, recorded{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			token:       r.Header.Get(AuthHeader),
			contentType: r.Header.Get("Content-Type"),
			body:        b,
		})
		h, ok := routes[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not Found","code":"not_found","message":"route not found"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func run(t *testing.T, srv *httptest.Server, tokenPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--base-url", srv.URL + "/api", "--token-file", tokenPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginStoresTokenAndLogoutRemovesIt(t *testing.T) {
	srv, seen := fakeAPI(t, map[string]http.HandlerFunc{
		"/api/login":  jsonReply(http.StatusOK, `{"token":"abc123"}`),
		"/api/logout": jsonReply(http.StatusOK, `{"message":"logged out"}`),
	})
	tokenPath := filepath.Join(t.TempDir(), "token")

	out, err := run(t, srv, tokenPath, "login", "--username", "admin", "--passw", "freepasses4all")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	stored, err := os.ReadFile(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "abc123\n", string(stored))

	login := (*seen)[0]
	assert.Equal(t, http.MethodPost, login.method)
	assert.Contains(t, login.contentType, "application/x-www-form-urlencoded")
	assert.Contains(t, string(login.body), "username=admin")
	assert.Contains(t, string(login.body), "password=freepasses4all")

	_, err = run(t, srv, tokenPath, "logout")
	require.NoError(t, err)
	assert.Equal(t, "abc123", (*seen)[1].token)
	_, err = os.Stat(tokenPath)
	assert.True(t, os.IsNotExist(err))
}

func TestLogoutWithoutToken(t *testing.T) {
	srv, seen := fakeAPI(t, nil)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "token"), "logout")
	require.Error(t, err)
	assert.Empty(t, *seen)
}

func TestLoginRequiresFlags(t *testing.T) {
	srv, _ := fakeAPI(t, nil)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "token"), "login", "--username", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passw")
}

func TestReportCommandsBuildPaths(t *testing.T) {
	cases := []struct {
		name string
		args []string
		path string
	}{
		{"station passes", []string{"tollstationpasses", "--station", "NAO01", "--from", "20220101", "--to", "20220131"}, "/api/tollStationPasses/NAO01/20220101/20220131"},
		{"pass analysis", []string{"passanalysis", "--stationop", "KO", "--tagop", "AM", "--from", "20220101", "--to", "20220131"}, "/api/passAnalysis/KO/AM/20220101/20220131"},
		{"passes cost", []string{"passescost", "--stationop", "KO", "--tagop", "AM", "--from", "20220101", "--to", "20220131"}, "/api/passesCost/KO/AM/20220101/20220131"},
		{"charges by", []string{"chargesby", "--opid", "AM", "--from", "20220101", "--to", "20220131"}, "/api/chargesBy/AM/20220101/20220131"},
		{"net charges", []string{"netcharges", "--opid1", "AM", "--opid2", "NAO", "--from", "20220101", "--to", "20220131"}, "/api/netCharges/AM/NAO/20220101/20220131"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, seen := fakeAPI(t, map[string]http.HandlerFunc{
				tc.path: jsonReply(http.StatusOK, `{"ok":true}`),
			})
			tokenPath := filepath.Join(t.TempDir(), "token")
			require.NoError(t, os.WriteFile(tokenPath, []byte("tok\n"), 0o600))

			out, err := run(t, srv, tokenPath, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, "{\n  \"ok\": true\n}\n", out)
			require.Len(t, *seen, 1)
			assert.Equal(t, http.MethodGet, (*seen)[0].method)
			assert.Equal(t, "format=json", (*seen)[0].query)
			assert.Equal(t, "tok", (*seen)[0].token)
		})
	}
}

func TestReportCSVIsPrintedRaw(t *testing.T) {
	csvBody := "stationID,stationOperator\nNAO01,NAO\n"
	srv, seen := fakeAPI(t, map[string]http.HandlerFunc{
		"/api/tollStationPasses/NAO01/20220101/20220131": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			_, _ = w.Write([]byte(csvBody))
		},
	})
	out, err := run(t, srv, filepath.Join(t.TempDir(), "token"),
		"tollstationpasses", "--station", "NAO01", "--from", "20220101", "--to", "20220131", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, csvBody, out)
	assert.Equal(t, "format=csv", (*seen)[0].query)
}

func TestReportNoContent(t *testing.T) {
	srv, _ := fakeAPI(t, map[string]http.HandlerFunc{
		"/api/chargesBy/AM/20220101/20220131": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	out, err := run(t, srv, filepath.Join(t.TempDir(), "token"),
		"chargesby", "--opid", "AM", "--from", "20220101", "--to", "20220131")
	require.NoError(t, err)
	assert.Contains(t, out, "No data")
}

func TestInvalidFormatIsRejectedLocally(t *testing.T) {
	srv, seen := fakeAPI(t, nil)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "token"),
		"chargesby", "--opid", "AM", "--from", "20220101", "--to", "20220131", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
	assert.Empty(t, *seen)
}

func TestServerErrorIsReported(t *testing.T) {
	srv, _ := fakeAPI(t, map[string]http.HandlerFunc{
		"/api/chargesBy/AM/2022/20220131": jsonReply(http.StatusBadRequest,
			`{"error":"Bad Request","code":"bad_request","message":"invalid request parameters"}`),
	})
	_, err := run(t, srv, filepath.Join(t.TempDir(), "token"),
		"chargesby", "--opid", "AM", "--from", "2022", "--to", "20220131")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "bad_request", apiErr.Code)
	assert.Equal(t, "invalid request parameters", apiErr.Message)
}

func TestAdminCommands(t *testing.T) {
	srv, seen := fakeAPI(t, map[string]http.HandlerFunc{
		"/api/admin/healthcheck":   jsonReply(http.StatusOK, `{"status":"OK"}`),
		"/api/admin/resetpasses":   jsonReply(http.StatusOK, `{"status":"OK"}`),
		"/api/admin/resetstations": jsonReply(http.StatusOK, `{"status":"OK","stations":3}`),
		"/api/admin/usermod":       jsonReply(http.StatusOK, `{"status":"OK"}`),
	})
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("tok"), 0o600))

	for _, args := range [][]string{
		{"healthcheck"},
		{"resetpasses"},
		{"resetstations"},
		{"admin", "--usermod", "--username", "ops", "--passw", "s3cret", "--company", "am"},
	} {
		_, err := run(t, srv, tokenPath, args...)
		require.NoError(t, err, args)
	}

	require.Len(t, *seen, 4)
	assert.Equal(t, http.MethodGet, (*seen)[0].method)
	assert.Equal(t, http.MethodPost, (*seen)[1].method)
	assert.Equal(t, "/api/admin/resetstations", (*seen)[2].path)

	var body map[string]string
	require.NoError(t, json.Unmarshal((*seen)[3].body, &body))
	assert.Equal(t, "ops", body["username"])
	assert.Equal(t, "s3cret", body["password"])
	assert.Equal(t, "am", body["company_id"])
	for _, r := range *seen {
		assert.Equal(t, "tok", r.token)
	}
}

func TestAdminUsermodNeedsCredentials(t *testing.T) {
	srv, seen := fakeAPI(t, nil)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "token"), "admin", "--usermod", "--username", "ops")
	require.Error(t, err)
	assert.Empty(t, *seen)
}

func TestAddPassesUploadsFile(t *testing.T) {
	srv, seen := fakeAPI(t, map[string]http.HandlerFunc{
		"/api/admin/addpasses": jsonReply(http.StatusOK, `{"status":"OK","imported":1}`),
	})
	src := filepath.Join(t.TempDir(), "passes.csv")
	require.NoError(t, os.WriteFile(src, []byte("timestamp,tollID,tagRef,tagHomeID,charge\n"), 0o644))

	out, err := run(t, srv, filepath.Join(t.TempDir(), "token"), "addpasses", "--source", src)
	require.NoError(t, err)
	assert.Contains(t, out, `"imported": 1`)

	require.Len(t, *seen, 1)
	assert.Contains(t, (*seen)[0].contentType, "multipart/form-data")
	assert.Contains(t, string((*seen)[0].body), "tagHomeID")
	assert.Equal(t, "format=json", (*seen)[0].query)
}

func TestAddPassesMissingSource(t *testing.T) {
	srv, seen := fakeAPI(t, nil)
	_, err := run(t, srv, filepath.Join(t.TempDir(), "token"), "addpasses", "--source", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Empty(t, *seen)
}

func TestTokenFileLoadMissing(t *testing.T) {
	tok, err := TokenFile{Path: filepath.Join(t.TempDir(), "none")}.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.NoError(t, TokenFile{Path: filepath.Join(t.TempDir(), "none")}.Remove())
}

func TestBaseURLFromEnvironment(t *testing.T) {
	srv, seen := fakeAPI(t, map[string]http.HandlerFunc{
		"/v2/admin/healthcheck": jsonReply(http.StatusOK, `{"status":"OK"}`),
	})
	t.Setenv("TOLLCTL_BASE_URL", srv.URL+"/v2")

	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetArgs([]string{"--token-file", filepath.Join(t.TempDir(), "token"), "healthcheck"})
	require.NoError(t, cmd.Execute())
	require.Len(t, *seen, 1)
	assert.Equal(t, "/v2/admin/healthcheck", (*seen)[0].path)
}
