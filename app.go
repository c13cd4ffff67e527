package choosenext

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/wire"
	"github.com/hayeah/goo"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for the sqlite history backend

	"github.com/hayeah/choosenext/internal/histlog"
	"github.com/hayeah/choosenext/internal/lister"
	"github.com/hayeah/choosenext/internal/runner"
	"github.com/hayeah/choosenext/internal/selector"
)

func ProvideConfig() (*Config, error) {
	cfg, err := goo.ParseConfig[Config]("")
	if err != nil {
		return nil, err
	}

	if cfg.History.Store == "" {
		cfg.History.Store = "file"
	}

	return cfg, nil
}

func ProvideGooConfig(cfg *Config) (*goo.Config, error) {
	return &cfg.Config, nil
}

// ProvideArgs parses cli args
func ProvideArgs() (*Args, error) {
	return goo.ParseArgs[Args]()
}

// collect all the necessary providers
var Wires = wire.NewSet(
	goo.Wires,
	// provide the base config for goo library
	ProvideGooConfig,

	// app specific providers
	ProvideConfig,
	ProvideArgs,

	// provide a goo.Runner interface for Main function, by using interface binding
	wire.Struct(new(App), "*"),
	wire.Bind(new(goo.Runner), new(*App)),
)

type Config struct {
	goo.Config
	History HistoryConfig
}

// HistoryConfig controls where and how playback history is kept.
type HistoryConfig struct {
	Dir          string // log directory, default ~/.choose_next (or CHOOSE_NEXT_LOGDIR)
	Store        string // "file" (default) or "sqlite"
	DBPath       string // sqlite database path, default <log dir>/history.db
	RecordFailed bool   // record a file as seen even when its command fails
}

// Args is the CLI surface: choose-next [OPTIONS] DIR [FILE]...
type Args struct {
	Dir   string   `arg:"positional,required" help:"directory to choose from"`
	Files []string `arg:"positional" help:"files to select explicitly, in order, before normal selection"`

	Command    string `arg:"-c,--command" help:"execute CMD on every selected file; %s in CMD is substituted with the filename, otherwise it is appended"`
	Clear      bool   `arg:"--clear" help:"remove log file and exit"`
	ClearFirst bool   `arg:"--clear-first" help:"remove first log file entry and exit"`
	ClearLast  bool   `arg:"--clear-last" help:"remove last log file entry and exit"`
	Dump       bool   `arg:"--dump" help:"dump log file to stdout and exit"`

	NoRead      bool   `arg:"-i,--no-read" help:"don't use log file to filter selection"`
	Logfile     string `arg:"-L,--logfile" help:"path of log file (default: ~/.choose_next/<dirname>)"`
	Last        bool   `arg:"-l,--last" help:"play last played file"`
	NoRecursive bool   `arg:"-N,--no-recursive" help:"do not scan DIR recursively"`
	IncludeDirs bool   `arg:"-d,--include-directories" help:"also select directories"`
	Number      int    `arg:"-n,--number" default:"1" help:"number of files to select (-1: infinite)"`
	Prepend     bool   `arg:"-p,--prepend" help:"prepend selected filename to the log instead of appending"`
	Quiet       bool   `arg:"-q,--quiet" help:"don't output anything"`
	Random      bool   `arg:"-r,--random" help:"choose a random file from DIR"`
	Verbose     bool   `arg:"-v,--verbose" help:"log selection internals to stderr"`
	NoWrite     bool   `arg:"-w,--no-write" help:"don't record selected files to log file"`
	Ignore      bool   `arg:"--ignore" help:"skip files matched by gitignore files under DIR"`

	Exclude string `arg:"--exclude" help:"exclude files matching PATTERN" placeholder:"PATTERN"`
	Include string `arg:"--include" help:"don't exclude files matching PATTERN" placeholder:"PATTERN"`
}

type App struct {
	Args     *Args
	Config   *Config
	Shutdown *goo.ShutdownContext
	DB       *sqlx.DB
	Migrator *goo.DBMigrator
	Logger   *slog.Logger
}

// InitApp builds the app without the wire harness; used by the CLI binary.
func InitApp() (*App, error) {
	cfg, err := ProvideConfig()
	if err != nil {
		return nil, err
	}

	args, err := ProvideArgs()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &App{
		Args:   args,
		Config: cfg,
		Logger: logger,
	}, nil
}

func (app *App) Run() error {
	args := app.Args

	dir, err := resolveDir(args.Dir)
	if err != nil {
		return err
	}

	store, err := app.historyStore(dir)
	if err != nil {
		return err
	}

	switch {
	case args.Clear:
		return store.Clear()
	case args.ClearFirst || args.ClearLast || args.Dump:
		return app.maintain(store)
	}

	return app.choose(dir, store)
}

// choose runs one select-play-commit cycle against the directory.
func (app *App) choose(dir string, store histlog.Store) error {
	args := app.Args

	history, err := store.Read()
	if err != nil {
		return err
	}
	history = normalizeHistory(dir, history)

	candidates, err := lister.List(dir, lister.Options{
		Recursive:     !args.NoRecursive,
		IncludeDirs:   args.IncludeDirs,
		Exclude:       args.Exclude,
		Include:       args.Include,
		RespectIgnore: args.Ignore,
	})
	if err != nil {
		return err
	}

	explicit := make([]string, 0, len(args.Files))
	for _, f := range args.Files {
		explicit = append(explicit, relExplicit(dir, f))
	}

	// --no-read disables log-based filtering but not --last replay
	selectionHistory := history
	if args.NoRead && !args.Last {
		selectionHistory = nil
	}

	mode := selector.ModeSequential
	switch {
	case args.Last:
		mode = selector.ModeLast
	case args.Random:
		mode = selector.ModeRandom
	}

	app.Logger.Debug("selection inputs",
		"directory", dir,
		"candidates", len(candidates),
		"history", len(selectionHistory),
		"explicit", len(explicit),
	)

	res, err := selector.Select(os.DirFS(dir), selector.Request{
		Candidates: candidates,
		History:    selectionHistory,
		Explicit:   explicit,
		Mode:       mode,
		Count:      args.Number,
		Prepend:    args.Prepend,
		Rand:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	})
	if err != nil {
		return err
	}

	play := runner.New(args.Command, app.Logger)

	var committed []string
	var runErr error
	for _, f := range res.Files {
		abs := filepath.Join(dir, f)
		app.Logger.Debug("selected file", "path", abs)

		err := play.Play(abs)
		if !args.Quiet {
			fmt.Println(abs)
		}
		if err != nil {
			runErr = err
			if app.Config.History.RecordFailed {
				committed = append(committed, f)
			}
			break
		}
		committed = append(committed, f)
	}

	if !res.Wrapped {
		// entries already in the log stay where they are; only genuinely
		// new plays get recorded (matters under --no-read and explicit
		// replays of logged files)
		logged := make(map[string]bool, len(history))
		for _, h := range history {
			logged[h] = true
		}
		fresh := committed[:0]
		for _, f := range committed {
			if !logged[f] {
				fresh = append(fresh, f)
			}
		}
		committed = fresh
	}

	if !args.NoWrite && !res.NoMutation && len(committed) > 0 {
		var commitErr error
		switch {
		case res.Wrapped:
			// cycle restart: the log holds only the new cycle's entries
			commitErr = store.Rewrite(committed)
		case args.Prepend:
			commitErr = store.Prepend(committed)
		default:
			commitErr = store.Append(committed)
		}
		if commitErr != nil {
			return commitErr
		}
	}

	return runErr
}

// maintain handles --clear-first, --clear-last and --dump.
func (app *App) maintain(store histlog.Store) error {
	args := app.Args

	entries, err := store.Read()
	if err != nil {
		return err
	}

	edited := entries
	if len(edited) > 0 && args.ClearFirst {
		edited = edited[1:]
	}
	if len(edited) > 0 && args.ClearLast {
		edited = edited[:len(edited)-1]
	}
	if args.ClearFirst || args.ClearLast {
		if err := store.Rewrite(edited); err != nil {
			return err
		}
	}

	if args.Dump {
		for _, e := range edited {
			fmt.Println(e)
		}
	}
	return nil
}

// historyStore builds the history log store for the watched directory.
func (app *App) historyStore(dir string) (histlog.Store, error) {
	if app.Args.Logfile != "" {
		return histlog.NewFileStore(app.Args.Logfile), nil
	}

	if app.Config.History.Store == "sqlite" {
		db, err := app.openDB()
		if err != nil {
			return nil, err
		}
		return histlog.NewSQLStore(db, dir, app.Logger), nil
	}

	return histlog.NewDirStore(app.logDir(), dir), nil
}

// openDB returns the sqlite database with the history schema in place. The
// wire harness injects DB and Migrator; the plain CLI path opens the
// database itself.
func (app *App) openDB() (*sqlx.DB, error) {
	if app.DB == nil {
		path := app.Config.History.DBPath
		if path == "" {
			path = filepath.Join(app.logDir(), "history.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		db, err := sqlx.Connect("sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		app.DB = db
	}

	if app.Migrator != nil {
		err := app.Migrator.Up([]goo.Migration{
			{Name: "create_history_entries", Up: histlog.Schema},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	} else if _, err := app.DB.Exec(histlog.Schema); err != nil {
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return app.DB, nil
}

// logDir resolves the log directory: config, then CHOOSE_NEXT_LOGDIR, then
// ~/.choose_next.
func (app *App) logDir() string {
	if app.Config.History.Dir != "" {
		return app.Config.History.Dir
	}
	if env := os.Getenv("CHOOSE_NEXT_LOGDIR"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".choose_next"
	}
	return filepath.Join(home, ".choose_next")
}

// resolveDir validates the target directory and resolves it to a real
// absolute path, which keys the history log.
func resolveDir(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("directory %q doesn't exist", dir)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// relExplicit maps an explicit file argument to a path relative to dir.
// Arguments are interpreted relative to the working directory when they
// resolve to something inside dir, otherwise taken as dir-relative.
func relExplicit(dir, file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		return file
	}
	if _, err := os.Stat(abs); err != nil {
		return file
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return file
	}
	return rel
}

// normalizeHistory rewrites absolute log entries relative to dir, matching
// how candidates are listed.
func normalizeHistory(dir string, entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if filepath.IsAbs(e) {
			if rel, err := filepath.Rel(dir, e); err == nil {
				out = append(out, rel)
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
