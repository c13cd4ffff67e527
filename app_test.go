package choosenext

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hayeah/choosenext/internal/assert"
	"github.com/hayeah/choosenext/internal/histlog"
	"github.com/hayeah/choosenext/internal/selector"
)

func newTestApp(t *testing.T, args *Args) *App {
	t.Helper()
	if args.Logfile == "" {
		args.Logfile = filepath.Join(t.TempDir(), "log")
	}
	if args.Number == 0 {
		args.Number = 1
	}
	return &App{
		Args:   args,
		Config: &Config{History: HistoryConfig{Store: "file"}},
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func writeMedia(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	return dir
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), runErr
}

func readLog(t *testing.T, app *App) []string {
	t.Helper()
	entries, err := histlog.NewFileStore(app.Args.Logfile).Read()
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	return entries
}

func TestRunCyclesThroughDirectory(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi", "c.avi")
	resolved, err := resolveDir(dir)
	assert.NoError(err)

	logfile := filepath.Join(t.TempDir(), "log")
	var outputs []string
	for i := 0; i < 3; i++ {
		app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
		out, err := captureStdout(t, app.Run)
		assert.NoError(err)
		outputs = append(outputs, out)
	}

	assert.Equal(filepath.Join(resolved, "a.avi")+"\n", outputs[0])
	assert.Equal(filepath.Join(resolved, "b.avi")+"\n", outputs[1])
	assert.Equal(filepath.Join(resolved, "c.avi")+"\n", outputs[2])

	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	assert.Equal([]string{"a.avi", "b.avi", "c.avi"}, readLog(t, app))

	// the log is full; the next run wraps and starts the cycle over
	out, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal(filepath.Join(resolved, "a.avi")+"\n", out)
	assert.Equal([]string{"a.avi"}, readLog(t, app))
}

func TestRunExplicitOverride(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi", "c.avi")
	resolved, err := resolveDir(dir)
	assert.NoError(err)

	app := newTestApp(t, &Args{Dir: dir, Files: []string{"b.avi"}, Number: 2})
	out, err := captureStdout(t, app.Run)
	assert.NoError(err)

	want := filepath.Join(resolved, "b.avi") + "\n" + filepath.Join(resolved, "a.avi") + "\n"
	assert.Equal(want, out)
	assert.Equal([]string{"b.avi", "a.avi"}, readLog(t, app))
}

func TestRunLastDoesNotAdvance(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi")
	resolved, err := resolveDir(dir)
	assert.NoError(err)

	logfile := filepath.Join(t.TempDir(), "log")
	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	_, err = captureStdout(t, app.Run)
	assert.NoError(err)

	for i := 0; i < 2; i++ {
		app := newTestApp(t, &Args{Dir: dir, Logfile: logfile, Last: true})
		out, err := captureStdout(t, app.Run)
		assert.NoError(err)
		assert.Equal(filepath.Join(resolved, "a.avi")+"\n", out)
	}
	assert.Equal([]string{"a.avi"}, readLog(t, app))
}

func TestRunLastEmptyHistory(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi")
	app := newTestApp(t, &Args{Dir: dir, Last: true})
	_, err := captureStdout(t, app.Run)
	assert.ErrorIs(err, selector.ErrEmptyHistory)
}

func TestRunPrepend(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi", "c.avi")

	logfile := filepath.Join(t.TempDir(), "log")
	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	_, err := captureStdout(t, app.Run)
	assert.NoError(err)

	// watch c.avi out of order, prepended
	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile, Files: []string{"c.avi"}, Prepend: true})
	_, err = captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal([]string{"c.avi", "a.avi"}, readLog(t, app))

	resolved, err := resolveDir(dir)
	assert.NoError(err)

	// --last still replays a.avi: prepending kept the log tail intact
	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile, Last: true})
	out, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal(filepath.Join(resolved, "a.avi")+"\n", out)

	// rotation continues at b.avi, skipping the prepended c.avi
	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	out, err = captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal(filepath.Join(resolved, "b.avi")+"\n", out)
}

func TestRunFailedCommandNotRecorded(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi")

	app := newTestApp(t, &Args{Dir: dir, Command: "exit 3", Quiet: true})
	_, err := captureStdout(t, app.Run)
	assert.Error(err)
	assert.Empty(readLog(t, app))
}

func TestRunFailedCommandRecordedWhenConfigured(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi")

	app := newTestApp(t, &Args{Dir: dir, Command: "exit 3", Quiet: true})
	app.Config.History.RecordFailed = true
	_, err := captureStdout(t, app.Run)
	assert.Error(err)
	assert.Equal([]string{"a.avi"}, readLog(t, app))
}

func TestRunClear(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi")

	logfile := filepath.Join(t.TempDir(), "log")
	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	_, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.NotEmpty(readLog(t, app))

	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile, Clear: true})
	assert.NoError(app.Run())
	assert.Empty(readLog(t, app))

	// selection behaves as if nothing was ever seen
	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	out, err := captureStdout(t, app.Run)
	assert.NoError(err)
	resolved, err := resolveDir(dir)
	assert.NoError(err)
	assert.Equal(filepath.Join(resolved, "a.avi")+"\n", out)
}

func TestRunDumpAndClearEdges(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi", "c.avi")

	logfile := filepath.Join(t.TempDir(), "log")
	store := histlog.NewFileStore(logfile)
	assert.NoError(store.Append([]string{"a.avi", "b.avi", "c.avi"}))

	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile, Dump: true})
	out, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal("a.avi\nb.avi\nc.avi\n", out)

	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile, ClearFirst: true})
	assert.NoError(app.Run())
	assert.Equal([]string{"b.avi", "c.avi"}, readLog(t, app))

	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile, ClearLast: true})
	assert.NoError(app.Run())
	assert.Equal([]string{"b.avi"}, readLog(t, app))
}

func TestRunNoWrite(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi")

	app := newTestApp(t, &Args{Dir: dir, NoWrite: true})
	_, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Empty(readLog(t, app))
}

func TestRunNoReadDoesNotDuplicateLog(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi")
	logfile := filepath.Join(t.TempDir(), "log")

	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
	_, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal([]string{"a.avi"}, readLog(t, app))

	// --no-read re-selects a.avi but the log already has it
	app = newTestApp(t, &Args{Dir: dir, Logfile: logfile, NoRead: true})
	_, err = captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal([]string{"a.avi"}, readLog(t, app))
}

func TestRunExplicitReplayDoesNotDuplicateLog(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi", "b.avi", "c.avi")
	logfile := filepath.Join(t.TempDir(), "log")

	for i := 0; i < 2; i++ {
		app := newTestApp(t, &Args{Dir: dir, Logfile: logfile})
		_, err := captureStdout(t, app.Run)
		assert.NoError(err)
	}

	// replaying an already-logged file leaves the log, and thus the
	// --last tail, untouched
	app := newTestApp(t, &Args{Dir: dir, Logfile: logfile, Files: []string{"a.avi"}})
	_, err := captureStdout(t, app.Run)
	assert.NoError(err)
	assert.Equal([]string{"a.avi", "b.avi"}, readLog(t, app))
}

func TestRunMissingDirectory(t *testing.T) {
	assert := assert.New(t)

	app := newTestApp(t, &Args{Dir: filepath.Join(t.TempDir(), "nope")})
	assert.Error(app.Run())
}

func TestRunInvalidCount(t *testing.T) {
	assert := assert.New(t)

	dir := writeMedia(t, "a.avi")
	app := newTestApp(t, &Args{Dir: dir, Number: -2})
	_, err := captureStdout(t, app.Run)
	assert.ErrorIs(err, selector.ErrInvalidCount)
}

func TestNormalizeHistory(t *testing.T) {
	assert := assert.New(t)

	got := normalizeHistory("/media/series", []string{
		"/media/series/a.avi",
		"b.avi",
	})
	assert.Equal([]string{"a.avi", "b.avi"}, got)
}
