package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/franksops/gopull/catalog"
	"github.com/franksops/gopull/config"
	"github.com/franksops/gopull/engine"
	"github.com/franksops/gopull/fetch"
	"github.com/franksops/gopull/store"
	"github.com/franksops/gopull/ui"
)

func main() {
	// A .env next to the binary is a convenience for local runs; absence
	// is not an error.
	_ = godotenv.Load()

	var (
		configPath string
		csvPath    string
		outputDir  string
		workers    int
		retries    int
		timeout    time.Duration
		journal    string
		checksum   bool
		tuiEnabled bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&csvPath, "csv", "", "Path to the sample catalog CSV")
	flag.StringVar(&outputDir, "out", "", "Output directory for downloaded files")
	flag.IntVar(&workers, "workers", 0, "Number of concurrent downloads")
	flag.IntVar(&retries, "retries", 0, "Attempts against the primary URL per file")
	flag.DurationVar(&timeout, "timeout", 0, "Per-attempt timeout")
	flag.StringVar(&journal, "journal", "", "Path to the download journal database")
	flag.BoolVar(&checksum, "checksum", false, "Record a CRC64 of each download in the journal")
	flag.BoolVar(&tuiEnabled, "tui", true, "Enable the dashboard (disable for headless operation)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}

	// Flags win over file and environment.
	if csvPath != "" {
		cfg.Catalog = csvPath
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if retries > 0 {
		cfg.Retries = retries
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if journal != "" {
		cfg.Journal = journal
	}
	if checksum {
		cfg.Checksum = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println("Usage: gopull -csv <catalog.csv> [options]")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	jobs, skipped, err := catalog.Load(cfg.Catalog, catalog.Options{
		OutputDir:     cfg.OutputDir,
		PrimaryBase:   cfg.PrimaryBase,
		FallbackBases: cfg.FallbackBases,
		MaxNameLength: cfg.MaxFilenameLength,
		MaxRetries:    cfg.Retries,
		Timeout:       cfg.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	if skipped > 0 {
		log.Printf("Skipping %d existing files", skipped)
	}
	if len(jobs) == 0 {
		log.Println("No new samples to download")
		return
	}

	opts := engine.Options{
		Fetcher: fetch.NewClient(fetch.Options{
			UserAgent: cfg.UserAgent,
			Referer:   cfg.Referer,
		}),
		Checksum: cfg.Checksum,
	}

	if cfg.Journal != "" {
		st, err := store.NewBoltStore(cfg.Journal)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		defer st.Close()
		opts.Journal = store.NewJournal(st)
	}

	if !tuiEnabled {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	session := engine.New(opts)
	if err := session.Submit(jobs, cfg.Workers); err != nil {
		log.Fatalf("Failed to start downloads: %v", err)
	}

	if tuiEnabled {
		runDashboard(session, len(jobs))
		return
	}
	runHeadless(session)
}

// runDashboard drives the bubbletea program, forwarding session
// notifications as messages.
func runDashboard(session *engine.Session, total int) {
	program := tea.NewProgram(ui.NewModel(total, session.CancelAll), tea.WithAltScreen())

	go func() {
		for n := range session.Notifications() {
			switch n := n.(type) {
			case engine.ProgressEvent:
				program.Send(ui.ProgressMsg(n))
			case engine.JobDone:
				program.Send(ui.ResultMsg(n))
			case engine.RunStopped:
				program.Send(ui.StoppedMsg(n))
			case engine.RunCompleted:
				program.Send(ui.CompletedMsg(n))
				return
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		log.Fatalf("Dashboard error: %v", err)
	}
}

// runHeadless drains notifications until the run completes, stopping the
// run on SIGINT/SIGTERM.
func runHeadless(session *engine.Session) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		session.CancelAll()
	}()

	for n := range session.Notifications() {
		if done, ok := n.(engine.RunCompleted); ok {
			fmt.Printf("\nRun complete: %d ok, %d failed, %d cancelled of %d.\n",
				done.Finished, done.Failed, done.Cancelled, done.Total)
			return
		}
	}
}
