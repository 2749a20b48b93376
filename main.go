package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"

	"scriptmenu/internal/catalog"
	"scriptmenu/internal/config"
	"scriptmenu/internal/logging"
	"scriptmenu/internal/model"
	"scriptmenu/internal/runner"
	"scriptmenu/internal/session"
	"scriptmenu/internal/tui"
)

// Release location checked by --update. Placeholders until the project is
// published; set at build time with
// -ldflags "-X main.releaseOwner=... -X main.releaseRepo=...".
var (
	releaseOwner = "scriptmenu"
	releaseRepo  = "scriptmenu"
)

// releaseTag returns the GitHub source for --update, or false when the
// build carries no release location.
func releaseTag() (*latest.GithubTag, bool) {
	owner, repo := strings.TrimSpace(releaseOwner), strings.TrimSpace(releaseRepo)
	if owner == "" || repo == "" {
		return nil, false
	}
	return &latest.GithubTag{Owner: owner, Repository: repo}, true
}

func checkUpdate(currentVer string) {
	githubTag, ok := releaseTag()
	if !ok {
		fmt.Println("Update check is not configured for this build.")
		return
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		log.Debug().Err(err).Msg("update check failed")
		return
	}

	if res.Outdated {
		fmt.Printf("\n✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Printf("👉 Download it from https://github.com/%s/%s/releases\n", githubTag.Owner, githubTag.Repository)
	} else if pflag.Lookup("update").Changed {
		fmt.Printf("✅ You are using the latest version: %s\n", currentVer)
	}
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", model.AppName)
		fmt.Fprintf(os.Stderr, "%s runs the shell scripts of one directory from a searchable menu.\n", model.AppName)
		fmt.Fprintf(os.Stderr, "The menu follows changes to the directory and to the settings file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                 # Start the menu (TUI mode)\n", model.AppName)
		fmt.Fprintf(os.Stderr, "  %s --list          # Print the scripts that would be shown\n", model.AppName)
		fmt.Fprintf(os.Stderr, "  %s -r deploy       # Run deploy.sh and deliver its result\n", model.AppName)
		fmt.Fprintf(os.Stderr, "  %s --json          # Output the catalog as JSON\n", model.AppName)
	}

	listFlag := pflag.BoolP("list", "l", false, "Print the script catalog")
	jsonFlag := pflag.BoolP("json", "j", false, "Output the script catalog as JSON")
	runFlag := pflag.StringP("run", "r", "", "Run the script with this file or display name, then exit")
	configFlag := pflag.StringP("config", "c", "", "Settings file (default $"+config.EnvConfig+" or the user config dir)")
	debugLogFlag := pflag.String("debug-log", "", "Write TUI mode logs to this file")
	verboseFlag := pflag.BoolP("verbose", "v", false, "Verbose logging")
	versionFlag := pflag.BoolP("version", "V", false, "Print version information")
	updateFlag := pflag.BoolP("update", "u", false, "Check for the latest version")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return
	}

	if *versionFlag {
		fmt.Printf("%s version %s\n", model.AppName, model.Version)
		return
	}

	level := zerolog.InfoLevel
	if *verboseFlag {
		level = zerolog.DebugLevel
	}
	tuiMode := !*listFlag && !*jsonFlag && *runFlag == "" && !*updateFlag
	closeLog, err := setupLogging(level, tuiMode, *debugLogFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if *updateFlag {
		checkUpdate(model.Version)
		return
	}

	store, err := openSettings(*configFlag)
	if err != nil {
		log.Error().Err(err).Msg("cannot load settings")
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *jsonFlag:
		err = runJSONMode(store)
	case *listFlag:
		err = runListMode(store)
	case *runFlag != "":
		var code int
		code, err = runScriptMode(store, *runFlag)
		if err == nil && code != 0 {
			store.Close()
			closeLog()
			os.Exit(code)
		}
	default:
		err = runTuiMode(store)
	}
	if err != nil {
		log.Error().Err(err).Msg(model.AppName + " failed")
		store.Close()
		closeLog()
		os.Exit(1)
	}
}

// setupLogging logs to stderr in CLI modes. The TUI owns the terminal, so
// there logs go to --debug-log or nowhere.
func setupLogging(level zerolog.Level, tuiMode bool, debugLog string) (func(), error) {
	opts := logging.DefaultOptions()
	opts.Level = level
	if !tuiMode {
		logging.Configure(opts)
		return func() {}, nil
	}
	if debugLog == "" {
		logging.Discard()
		return func() {}, nil
	}
	f, err := os.OpenFile(model.ExpandHome(debugLog), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log: %w", err)
	}
	opts.Output = f
	opts.NoColor = true
	opts.Level = zerolog.DebugLevel
	logging.Configure(opts)
	return func() { _ = f.Close() }, nil
}

func openSettings(flagValue string) (*config.FileStore, error) {
	path, err := config.ResolvePath(flagValue)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("file", path).Msg("loading settings")
	return config.Open(path)
}

func scan(store config.Settings) model.CatalogSnapshot {
	dir := config.ScriptsDir(store)
	if dir == "" {
		log.Warn().Msg("no scripts directory configured, set \"path\" in the settings file")
	}
	return catalog.Scan(dir, config.CatalogOptions(store))
}

func runJSONMode(store *config.FileStore) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scan(store)); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return nil
}

func runListMode(store *config.FileStore) error {
	snap := scan(store)
	if snap.Len() == 0 {
		fmt.Println("No scripts.")
	}
	for _, d := range snap.Scripts {
		marker := d.Icon.Glyph()
		if tag := d.Icon.Tag(); tag != "" {
			marker = "[" + tag + "]"
		}
		fmt.Printf("%-6s %-30s %s\n", marker, d.DisplayName, d.Icon)
	}

	fmt.Printf("\nSettings: %s\n", store.Path())
	if home, err := os.UserHomeDir(); err == nil {
		fmt.Printf("Launch log: %s\n", model.LogFilePath(home))
	}
	return nil
}

// runScriptMode launches one script and waits until its sinks ran. The
// returned code mirrors the script's exit status.
func runScriptMode(store *config.FileStore, name string) (int, error) {
	delivered := make(chan model.Completion, 1)
	r := runner.New()
	s := session.New(store,
		session.WithLauncher(r),
		session.WithNotifier(model.AppName, func(_, message string) error {
			fmt.Println(message)
			return nil
		}),
		session.OnCompletion(func(c model.Completion) { delivered <- c }),
	)
	defer s.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := s.Start(ctx); err != nil {
		return 0, err
	}

	if _, err := s.Launch(name); err != nil {
		if errors.Is(err, session.ErrUnknownScript) {
			return 0, fmt.Errorf("%w: %q in %s", err, name, config.ScriptsDir(store))
		}
		return 0, err
	}

	select {
	case c := <-delivered:
		r.Wait()
		if c.Failed() {
			return 0, c.Err
		}
		if c.Result.ExitStatus < 0 {
			return 1, nil
		}
		return c.Result.ExitStatus, nil
	case <-ctx.Done():
		return 130, nil
	}
}

func runTuiMode(store *config.FileStore) error {
	var bridge tui.Bridge
	s := session.New(store, bridge.Options()...)
	if err := s.Start(context.Background()); err != nil {
		return err
	}
	defer s.Stop()

	m := tui.InitialModel(s)
	p := tea.NewProgram(m, tea.WithAltScreen())
	bridge.Attach(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running menu: %w", err)
	}
	return nil
}
