package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/deskshell/internal/logger"
	"github.com/glorpus-work/deskshell/pkg/clientversion"
	"github.com/glorpus-work/deskshell/pkg/ecs"
	"github.com/glorpus-work/deskshell/pkg/update"
	"github.com/glorpus-work/deskshell/test/testutil"
)

func runCLI(t *testing.T, configPath, format string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	return runCLIWithLogs(t, io.Discard, configPath, format, cmd, args...)
}

func runCLIWithLogs(t *testing.T, logs io.Writer, configPath, format string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	verbose, noColor := false, true
	ConfigPath, Verbose, NoColor, OutputFormat = &configPath, &verbose, &noColor, &format
	logger.SetTestOutput(logs)
	t.Cleanup(func() {
		ConfigPath, Verbose, NoColor, OutputFormat = nil, nil, nil, nil
		logger.UnsetTestOutput()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestConfigFetch(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusOK, testutil.ECSBody("etag-1", "9.0", false))
	configPath, dirs := testutil.WriteTestConfig(t, server.URL)

	out, err := runCLI(t, configPath, "", NewConfigCmd(), "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "config-changed")
	assert.Contains(t, out, "config-ready")
	assert.Contains(t, out, "etag-1")
	assert.FileExists(t, filepath.Join(dirs.Data, ecs.CacheFileName))
	assert.FileExists(t, filepath.Join(dirs.Data, "device-info.json"))

	assert.True(t, strings.HasPrefix(server.LastPath(), "/config/v1/SkypeElectronWrapper/8.10.1.76?clientId="))
	assert.Contains(t, server.LastPath(), "buildChannel=production")
}

func TestConfigFetch_JSON(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusOK, testutil.ECSBody("etag-2", "9.1", false))
	configPath, _ := testutil.WriteTestConfig(t, server.URL)

	out, err := runCLI(t, configPath, "json", NewConfigCmd(), "fetch")
	require.NoError(t, err)

	var report fetchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"config-changed", "config-ready"}, report.Events)
	require.NotNil(t, report.Config)
	assert.Equal(t, "9.1", report.Config.LastVersionAvailable)
	assert.Empty(t, report.Error)
}

func TestConfigFetch_FailsAfterRetries(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusInternalServerError, "boom")
	configPath, _ := testutil.WriteTestConfig(t, server.URL)

	out, err := runCLI(t, configPath, "", NewConfigCmd(), "fetch")
	require.Error(t, err)
	assert.Contains(t, out, "config-retry")
	assert.Contains(t, out, "config-error")
	assert.Equal(t, 3, server.Requests(), "first attempt plus retry_limit retries")
}

func TestConfigFetch_FallsBackToCache(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusOK, testutil.ECSBody("cached", "9.0", false))
	configPath, _ := testutil.WriteTestConfig(t, server.URL)

	_, err := runCLI(t, configPath, "", NewConfigCmd(), "fetch")
	require.NoError(t, err)

	server.Respond(http.StatusServiceUnavailable, "")
	out, err := runCLI(t, configPath, "", NewConfigCmd(), "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "config-ready")
	assert.NotContains(t, out, "config-changed")
	assert.Contains(t, out, "cached")
}

func TestConfigCacheClear(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusOK, testutil.ECSBody("e", "9.0", false))
	configPath, dirs := testutil.WriteTestConfig(t, server.URL)
	cacheFile := filepath.Join(dirs.Data, ecs.CacheFileName)

	_, err := runCLI(t, configPath, "", NewConfigCmd(), "fetch")
	require.NoError(t, err)
	require.FileExists(t, cacheFile)

	out, err := runCLI(t, configPath, "", NewConfigCmd(), "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")
	assert.NoFileExists(t, cacheFile)
}

func TestConfigCacheClear_Logs(t *testing.T) {
	configPath, dirs := testutil.WriteTestConfig(t, "https://ecs.example.com")
	_, err := runCLI(t, configPath, "", NewConfigCmd(), "set", "settings.log_level", "info")
	require.NoError(t, err)

	var logs bytes.Buffer
	_, err = runCLIWithLogs(t, &logs, configPath, "", NewConfigCmd(), "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Remote config cache cleared")
	assert.Contains(t, logs.String(), "status=success")
	assert.Contains(t, logs.String(), filepath.Join(dirs.Data, ecs.CacheFileName))
}

func TestConfigSetGetShow(t *testing.T) {
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")

	_, err := runCLI(t, configPath, "", NewConfigCmd(), "set", "ecs.retry_limit", "7")
	require.NoError(t, err)

	out, err := runCLI(t, configPath, "", NewConfigCmd(), "get", "ecs.retry_limit")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	out, err = runCLI(t, configPath, "", NewConfigCmd(), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "SETTING")
	assert.Contains(t, out, "ecs.hosts")
	assert.Contains(t, out, "https://ecs.example.com")

	out, err = runCLI(t, configPath, "json", NewConfigCmd(), "show")
	require.NoError(t, err)
	var settings map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "7", settings["ecs.retry_limit"])

	_, err = runCLI(t, configPath, "", NewConfigCmd(), "set", "settings.log_level", "loud")
	assert.Error(t, err)
	_, err = runCLI(t, configPath, "", NewConfigCmd(), "get", "nope.key")
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "deskshell", "config.yaml")

	_, err := runCLI(t, configPath, "", NewConfigCmd(), "init")
	require.NoError(t, err)
	assert.FileExists(t, configPath)

	_, err = runCLI(t, configPath, "", NewConfigCmd(), "init")
	assert.Error(t, err)

	_, err = runCLI(t, configPath, "", NewConfigCmd(), "init", "--force")
	assert.NoError(t, err)
}

func TestConfigOutputFlagValidated(t *testing.T) {
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")
	_, err := runCLI(t, configPath, "xml", NewConfigCmd(), "show")
	assert.Error(t, err)
}

func fileServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.bin" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/private.bin" && r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("content of " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownload_Public(t *testing.T) {
	server := fileServer(t)
	configPath, dirs := testutil.WriteTestConfig(t, "https://ecs.example.com")

	out, err := runCLI(t, configPath, "", NewDownloadCmd(), server.URL+"/report.pdf", "--public")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dirs.Downloads, "report.pdf"))

	_, err = runCLI(t, configPath, "", NewDownloadCmd(), server.URL+"/report.pdf", "--public")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dirs.Downloads, "report (1).pdf"))
	require.NoError(t, err)
	assert.Equal(t, "content of /report.pdf", string(data))
}

func TestDownload_CachedConcurrent(t *testing.T) {
	server := fileServer(t)
	configPath, dirs := testutil.WriteTestConfig(t, "https://ecs.example.com")

	out, err := runCLI(t, configPath, "json", NewDownloadCmd(),
		server.URL+"/a.json", server.URL+"/b.json", server.URL+"/private.bin", "-H", "X-Token: secret")
	require.NoError(t, err)

	var results []downloadResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Empty(t, res.Error, res.URL)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, dirs.Temp, filepath.Dir(res.Path))
		assert.FileExists(t, res.Path)
	}

	// cached copies are reused
	out, err = runCLI(t, configPath, "json", NewDownloadCmd(), server.URL+"/a.json")
	require.NoError(t, err)
	results = nil
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, http.StatusNotModified, results[0].StatusCode)
}

func TestDownload_Failure(t *testing.T) {
	server := fileServer(t)
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")

	out, err := runCLI(t, configPath, "json", NewDownloadCmd(), server.URL+"/missing.bin", server.URL+"/ok.bin")
	require.Error(t, err)

	var results []downloadResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Error, "404")
	assert.Equal(t, http.StatusNotFound, results[0].StatusCode)
	assert.Empty(t, results[1].Error, "other downloads keep going")
}

func TestDownload_FlagErrors(t *testing.T) {
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")

	_, err := runCLI(t, configPath, "", NewDownloadCmd(), "https://x/a", "https://x/b", "--name", "one.bin")
	assert.Error(t, err)

	_, err = runCLI(t, configPath, "", NewDownloadCmd(), "https://x/a", "-H", "no-colon")
	assert.Error(t, err)
}

func TestUpdateCheck(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusOK, testutil.ECSBody("e", "9.0", false))
	configPath, _ := testutil.WriteTestConfig(t, server.URL)

	out, err := runCLI(t, configPath, "", NewUpdateCmd(), "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Update available: 9.0")
	assert.Contains(t, out, "8.10.1.76")

	out, err = runCLI(t, configPath, "json", NewUpdateCmd(), "check")
	require.NoError(t, err)
	var status update.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.UpdateAvailable)
	assert.Equal(t, time.Hour, status.Interval)
}

func TestUpdateCheck_Disabled(t *testing.T) {
	server := testutil.NewECSServer(t, http.StatusOK, testutil.ECSBody("e", "8.10.1.76", true))
	configPath, _ := testutil.WriteTestConfig(t, server.URL)

	out, err := runCLI(t, configPath, "", NewUpdateCmd(), "check")
	require.Error(t, err)
	assert.Contains(t, out, "disabled")
}

func TestDeviceID(t *testing.T) {
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")

	first, err := runCLI(t, configPath, "", NewDeviceCmd(), "id")
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-F]{32}\n$`, first)

	second, err := runCLI(t, configPath, "", NewDeviceCmd(), "id")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVersion(t *testing.T) {
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")

	out, err := runCLI(t, configPath, "", NewVersionCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "deskshell version "+Version)
	assert.Contains(t, out, "Client version: "+clientversion.PlatformID(runtime.GOOS, false)+"/8.10.1.76/")
}

func TestFilenameFromURL(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example.com/files/report.pdf?sig=1": "report.pdf",
		"https://cdn.example.com/":                       "download",
		"https://cdn.example.com":                        "download",
		"::not a url":                                    "download",
	}
	for in, want := range tests {
		assert.Equal(t, want, filenameFromURL(in), in)
	}
}

func TestDownload_LogsOutcome(t *testing.T) {
	server := fileServer(t)
	configPath, _ := testutil.WriteTestConfig(t, "https://ecs.example.com")
	_, err := runCLI(t, configPath, "", NewConfigCmd(), "set", "settings.log_level", "info")
	require.NoError(t, err)

	var logs bytes.Buffer
	_, err = runCLIWithLogs(t, &logs, configPath, "", NewDownloadCmd(), server.URL+"/notes.txt", server.URL+"/missing.bin")
	require.Error(t, err)

	assert.Contains(t, logs.String(), `msg="Download complete"`)
	assert.Contains(t, logs.String(), `msg="Download failed"`)
	assert.Contains(t, logs.String(), "code=404")
}

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"X-Token: secret", "Accept:application/json"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Token": "secret", "Accept": "application/json"}, headers)

	headers, err = parseHeaders(nil)
	require.NoError(t, err)
	assert.Nil(t, headers)

	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}
