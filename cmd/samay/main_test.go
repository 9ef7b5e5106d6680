package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hrygo/samay/server/service/commitment"
)

// Friday 13 Feb 2026, 10:00 IST.
const ref = "2026-02-13T10:00:00+05:30"

// run executes one samay invocation against the data directory.
func run(t *testing.T, data string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--data", data, "--log-level", "warn"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	data := t.TempDir()

	out, err := run(t, data, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated schema from version 0")
	assert.FileExists(t, filepath.Join(data, "samay_dev.db"))

	out, err = run(t, data, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")
}

func TestParse(t *testing.T) {
	data := t.TempDir()

	out, err := run(t, data, "parse", "हर सोमवार सुबह 7 बजे", "--ref", ref, "--upcoming", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-02-16T07:00:00+05:30")
	assert.Contains(t, out, "2026-02-23T07:00:00+05:30")
	assert.Contains(t, out, "BYDAY=MO")

	out, err = run(t, data, "parse", "कल शाम 6 बजे", "--ref", ref, "-o", "json")
	require.NoError(t, err)
	var preview commitment.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, "2026-02-14T18:00:00+05:30", preview.Instant)

	_, err = run(t, data, "parse", "कुछ भी नहीं", "--ref", ref)
	assert.Error(t, err)

	_, err = run(t, data, "parse", "कल", "--ref", "yesterday")
	assert.Error(t, err)
}

func TestCommitmentCommands(t *testing.T) {
	data := t.TempDir()

	out, err := run(t, data, "add", "कल सुबह 7 बजे अलार्म", "--ref", ref, "-o", "json")
	require.NoError(t, err)
	var alarm commitment.Response
	require.NoError(t, json.Unmarshal([]byte(out), &alarm))
	assert.Equal(t, "2026-02-14T07:00:00+05:30", alarm.DueAt)

	out, err = run(t, data, "add", "शाम 6 बजे याद दिलाना", "--text", "दवाई लेना", "--ref", ref)
	require.NoError(t, err)
	assert.Contains(t, out, "दवाई लेना")

	_, err = run(t, data, "add", "कुछ भी नहीं", "--ref", ref)
	assert.Error(t, err)

	out, err = run(t, data, "list", "-o", "yaml")
	require.NoError(t, err)
	var items []commitment.Item
	require.NoError(t, yaml.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	reminderID := items[1].ID

	out, err = run(t, data, "list", "--kind", "alarm")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-02-14T07:00:00+05:30")
	assert.NotContains(t, out, "दवाई")

	out, err = run(t, data, "snooze", "reminder", itoa(reminderID), "15")
	require.NoError(t, err)
	assert.Contains(t, out, "snoozed reminder")

	out, err = run(t, data, "complete", itoa(reminderID))
	require.NoError(t, err)
	assert.Contains(t, out, "दवाई लेना")

	icsPath := filepath.Join(data, "samay.ics")
	_, err = run(t, data, "export-ics", "--out", icsPath)
	require.NoError(t, err)
	body, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), alarm.UID+"@samay")

	out, err = run(t, data, "cancel", "alarm", itoa(alarm.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "archived alarm")

	out, err = run(t, data, "list", "--kind", "alarm", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = run(t, data, "cancel", "alarm", "abc")
	assert.Error(t, err)
	_, err = run(t, data, "cancel", "todo", "1")
	assert.Error(t, err)
}

func TestTimerStatus(t *testing.T) {
	data := t.TempDir()

	out, err := run(t, data, "timer-status")
	require.NoError(t, err)
	assert.Contains(t, out, "कोई टाइमर चालू नहीं है")

	_, err = run(t, data, "add", "10 मिनट का टाइमर", "--text", "चाय")
	require.NoError(t, err)

	out, err = run(t, data, "timer-status", "-o", "json")
	require.NoError(t, err)
	var status commitment.TimerStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.Len(t, status.Timers, 1)
	assert.Equal(t, "चाय", status.Timers[0].Label)
	assert.InDelta(t, 600, status.Timers[0].RemainingSeconds, 30)
	assert.Contains(t, status.UserFacingText, "बाकी हैं")

	out, err = run(t, data, "timer-status")
	require.NoError(t, err)
	assert.Contains(t, out, "चाय")
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/system/metrics", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"version": "1.2.3",
			"request_total": 4,
			"parse_failures": 1,
			"understood_rate": 75,
			"fired": 3,
			"fired_by_kind": {"alarm": 2, "timer": 1},
			"health": {"healthy": true, "running": true}
		}`))
	}))
	defer srv.Close()

	out, err := run(t, t.TempDir(), "status", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "alarm")
	assert.Contains(t, out, "1.2.3")

	out, err = run(t, t.TempDir(), "status", "--addr", srv.URL, "-o", "json")
	require.NoError(t, err)
	var status serverStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, int64(4), status.RequestTotal)

	_, err = run(t, t.TempDir(), "status", "--addr", "http://127.0.0.1:1")
	assert.Error(t, err)
}

func itoa(id int32) string {
	return strconv.Itoa(int(id))
}
