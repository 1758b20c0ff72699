package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/wsterm/internal/bindings"
	"github.com/unkn0wn-root/wsterm/internal/config"
	"github.com/unkn0wn-root/wsterm/internal/cookies"
	"github.com/unkn0wn-root/wsterm/internal/history"
	"github.com/unkn0wn-root/wsterm/internal/telemetry"
	"github.com/unkn0wn-root/wsterm/internal/theme"
	"github.com/unkn0wn-root/wsterm/internal/ui"
	"github.com/unkn0wn-root/wsterm/internal/vars"
	"github.com/unkn0wn-root/wsterm/internal/wsclient"
	"github.com/unkn0wn-root/wsterm/internal/wsfile"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		filePath    string
		envName     string
		envFile     string
		timeout     time.Duration
		insecure    bool
		proxyURL    string
		showVersion bool
	)

	flag.StringVar(&filePath, "file", "", "Path to .ws.yaml workspace file to open")
	flag.StringVar(&envName, "env", "", "Environment name to use")
	flag.StringVar(&envFile, "env-file", "", "Path to environment file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Handshake timeout")
	flag.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	flag.StringVar(&proxyURL, "proxy", "", "Proxy URL (http or socks5)")
	flag.BoolVar(&showVersion, "version", false, "Show wsterm version")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("wsterm %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	if filePath == "" && flag.NArg() > 0 {
		filePath = flag.Arg(0)
	}

	workspace, err := loadWorkspace(filePath)
	if err != nil {
		log.Fatalf("load workspace: %v", err)
	}

	envSet, resolvedEnvFile := loadEnvironment(envFile, filePath)
	if envName == "" && len(envSet) > 0 {
		if selected, _ := vars.SelectDefault(envSet); selected != "" {
			envName = selected
		}
	}
	envVars := envSet[envName]
	if resolvedEnvFile != "" && envVars == nil && envName != "" {
		log.Printf("environment %q not found in %s", envName, resolvedEnvFile)
	}

	settings, _, err := config.LoadSettings()
	if err != nil {
		log.Printf("settings load error: %v", err)
		settings = config.Settings{Layout: config.DefaultLayoutSettings()}
	}
	if envName == "" {
		envName = settings.DefaultEnvironment
	}
	if proxyURL == "" {
		proxyURL = settings.Proxy
	}
	if settings.InsecureTLS {
		insecure = true
	}
	if settings.HandshakeTimeoutMS > 0 && timeout == 10*time.Second {
		timeout = time.Duration(settings.HandshakeTimeoutMS) * time.Millisecond
	}

	client := wsclient.NewClient(wsclient.Options{
		HandshakeTimeout:   timeout,
		InsecureSkipVerify: insecure,
		ProxyURL:           proxyURL,
		UserAgent:          "wsterm/" + version,
	})

	telemetryCfg := telemetry.ConfigFromEnv("wsterm", version)
	provider, err := telemetry.New(telemetryCfg)
	if err != nil {
		log.Printf("telemetry init error: %v", err)
	} else {
		client.SetTelemetry(provider)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := provider.Shutdown(ctx); shutdownErr != nil {
				log.Printf("telemetry shutdown: %v", shutdownErr)
			}
		}()
	}

	cookieStore, err := cookies.Open(config.CookiePath())
	if err != nil {
		log.Fatalf("open cookie store: %v", err)
	}
	defer func() {
		_ = cookieStore.Close()
	}()
	client.SetCookieStore(cookieStore)

	historyStore := history.NewStore(config.HistoryPath(), 500)
	if err := historyStore.Load(); err != nil {
		log.Printf("history load error: %v", err)
	}

	bindingMap, _, bindingErr := bindings.Load(config.Dir())
	if bindingErr != nil {
		log.Printf("bindings load error: %v", bindingErr)
		bindingMap = bindings.DefaultMap()
	}

	th, themeErr := theme.Load(filepath.Join(config.Dir(), "themes"), settings.DefaultTheme)
	if themeErr != nil {
		log.Printf("theme load error: %v", themeErr)
		th = theme.Default()
	}

	lipgloss.SetColorProfile(termenv.ColorProfile())

	model := ui.New(ui.Config{
		Workspace:   workspace,
		Environment: envName,
		EnvVars:     envVars,
		Client:      client,
		Cookies:     cookieStore,
		History:     historyStore,
		Bindings:    bindingMap,
		Theme:       th,
		Settings:    settings,
		Version:     version,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, heredoc.Doc(`
		wsterm - terminal WebSocket client

		Usage:
		  wsterm [flags] [workspace.ws.yaml]

		Flags:
	`))
	flag.PrintDefaults()
	fmt.Fprint(os.Stderr, heredoc.Doc(`

		Environment files (ws-client.env.json, .env) are discovered next to
		the workspace file. Select an environment with -env.
	`))
}

func loadWorkspace(path string) (*wsfile.Workspace, error) {
	if path == "" {
		return wsfile.New("scratch"), nil
	}
	ws, err := wsfile.Load(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func loadEnvironment(explicit, filePath string) (vars.EnvironmentSet, string) {
	if explicit != "" {
		envs, err := vars.LoadEnvironmentFile(explicit)
		if err != nil {
			log.Printf("failed to load environment file %s: %v", explicit, err)
			return nil, ""
		}
		return envs, explicit
	}

	var searchPaths []string
	if filePath != "" {
		searchPaths = append(searchPaths, filepath.Dir(filePath))
	}
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}

	envs, path, err := vars.ResolveEnvironment(searchPaths)
	if err != nil {
		return nil, ""
	}
	return envs, path
}
