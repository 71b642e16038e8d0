// Sousvox — a voice-driven guided cooking session.
//
// Usage:
//
//	sousvox [-voice] [-verbose] [-quiet]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/hammamikhairi/sousvox/internal/capture"
	"github.com/hammamikhairi/sousvox/internal/config"
	"github.com/hammamikhairi/sousvox/internal/domain"
	"github.com/hammamikhairi/sousvox/internal/feedback"
	"github.com/hammamikhairi/sousvox/internal/guide"
	"github.com/hammamikhairi/sousvox/internal/logger"
	"github.com/hammamikhairi/sousvox/internal/match"
	"github.com/hammamikhairi/sousvox/internal/recipe"
	"github.com/hammamikhairi/sousvox/internal/speech"
	"github.com/hammamikhairi/sousvox/internal/vocab"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5")).
			Bold(true)

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".sousvox-logs/sousvox.log", "file to write logs to (use \"stderr\" to log to console)")
	noSpeech := flag.Bool("no-speech", false, "disable text-to-speech even if Azure keys are set")
	diskCache := flag.Bool("disk-cache", cfg.DiskCache, "persist TTS audio cache to disk (reads from disk even when false)")
	cacheDir := flag.String("cache-dir", cfg.CacheDir, "directory for persistent TTS audio cache")
	voice := flag.Bool("voice", false, "enable voice input via local Whisper STT")
	whisperBin := flag.String("whisper-bin", cfg.WhisperBin, "path to the whisper-cpp CLI binary")
	whisperModel := flag.String("whisper-model", cfg.WhisperModel, "path to the Whisper GGML model file")
	recordSecs := flag.Int("record-secs", int(cfg.RecordDuration/time.Second), "seconds per voice recording chunk")
	flag.Parse()

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the terminal stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Redirect Go's default log package (used by third-party libs like
	// the whisper transcriber) to the same output so it doesn't spam
	// the terminal.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies.
	guides := recipe.NewMemorySource(log)
	matcher := match.New(vocab.Lookup(), log, match.WithThreshold(cfg.FuzzyThreshold))
	notifier := &cliNotifier{}

	// Build speech output. Remote Azure synthesis when configured, local
	// espeak/say as fallback, silent otherwise.
	var synth domain.Synthesizer
	var out domain.AudioOutput
	var cache *speech.Cache

	if cfg.RemoteSpeechEnabled() && !*noSpeech {
		player, err := speech.NewPlayer(log)
		if err != nil {
			log.Error("audio player init failed, remote speech disabled: %v", err)
		} else {
			synth = speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, log,
				speech.WithVoice(cfg.Voice),
			)
			out = player
			cache = speech.NewCache(cfg.Voice, *cacheDir, *diskCache, log)
			log.Info("TTS enabled (voice=%s, region=%s)", cfg.Voice, cfg.AzureSpeechRegion)
		}
	} else if !*noSpeech {
		log.Info("remote TTS disabled: set AZURE_SPEECH_KEY and AZURE_SPEECH_REGION env vars to enable")
	}

	var fallback domain.FallbackSpeaker
	if !*noSpeech {
		fallback = speech.NewLocalSynth(log)
	}

	// Build voice capture. Without -voice the session still runs; input
	// comes from typed commands only.
	var rec domain.Recognizer = silentRecognizer{}
	if *voice {
		if _, err := os.Stat(*whisperModel); err != nil {
			fmt.Fprintf(os.Stderr, "error: whisper model not found at %s\n", *whisperModel)
			os.Exit(1)
		}
		rec = capture.NewWhisperRecognizer(*whisperBin, *whisperModel, log,
			capture.WithRecordDuration(time.Duration(*recordSecs)*time.Second),
		)
		log.Info("voice input enabled (bin=%s, model=%s, chunk=%ds)", *whisperBin, *whisperModel, *recordSecs)
	}

	ctrl := capture.New(rec, notifier, log,
		capture.WithTrailingDelay(cfg.ResumeDelay),
	)

	queueOpts := []feedback.Option{
		feedback.WithEcho(func(text string) {
			fmt.Println(chatStyle.Render("  " + text))
		}),
	}
	if fallback != nil {
		queueOpts = append(queueOpts, feedback.WithFallback(fallback))
	}
	if cache != nil {
		queueOpts = append(queueOpts, feedback.WithCache(cache))
	}
	queue := feedback.New(synth, out, ctrl, log, queueOpts...)
	queue.Start(ctx)

	orch := guide.New(guides, matcher, ctrl, queue, log)

	app := &cliApp{
		guides: guides,
		orch:   orch,
		log:    log,
	}

	fmt.Println(bannerStyle.Render("  Sousvox — hands-free guided cooking"))
	if *voice {
		fmt.Println(bannerStyle.Render("  Voice mode ON. Speak commands, or type them."))
	} else {
		fmt.Println(bannerStyle.Render("  Type 'open <guide>' to begin, 'help' for commands, 'quit' to exit."))
	}
	fmt.Println()

	app.run(ctx)
	cancel()
}

// silentRecognizer is the capture backend when voice input is off. It
// starts cleanly and never emits an event.
type silentRecognizer struct{}

func (silentRecognizer) Start(ctx context.Context) error    { return nil }
func (silentRecognizer) Stop()                               {}
func (silentRecognizer) Events() <-chan domain.CaptureEvent { return nil }

var _ domain.Notifier = (*cliNotifier)(nil)

// cliNotifier prints capture status messages to the terminal.
type cliNotifier struct{}

func (cliNotifier) Notify(ctx context.Context, message string) error {
	fmt.Println(secondaryStyle.Render("  " + message))
	return nil
}

func (cliNotifier) NotifyUrgent(ctx context.Context, message string) error {
	fmt.Println(urgentStyle.Render("  " + message))
	return nil
}

type cliApp struct {
	guides  *recipe.MemorySource
	orch    *guide.Orchestrator
	log     *logger.Logger
	guideID string // open session's guide, "" when closed
}

func (a *cliApp) run(ctx context.Context) {
	a.showGuides(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(secondaryStyle.Render("> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "quit", "exit":
			a.closeSession()
			fmt.Println(chatStyle.Render("  " + feedback.LineGoodbye()))
			return
		case "guides", "list":
			a.showGuides(ctx)
		case "open", "start":
			a.openSession(ctx, strings.TrimSpace(arg))
		case "close", "stop":
			a.closeSession()
		case "status":
			a.showStatus(ctx)
		case "help":
			fmt.Println(secondaryStyle.Render("  open <guide> · close · status · guides · quit"))
			fmt.Println(secondaryStyle.Render("  in a session: " + vocab.HelpText()))
		default:
			// Everything else goes through the same pipeline as voice.
			a.orch.HandleText(line)
		}
	}
}

func (a *cliApp) showGuides(ctx context.Context) {
	summaries, err := a.guides.List(ctx)
	if err != nil {
		fmt.Println(urgentStyle.Render("  could not list guides: " + err.Error()))
		return
	}
	fmt.Println(secondaryStyle.Render("  Available guides:"))
	for _, s := range summaries {
		fmt.Printf("    %s  %s\n", doneStyle.Render(s.ID), s.Title)
	}
}

func (a *cliApp) openSession(ctx context.Context, id string) {
	if id == "" {
		fmt.Println(secondaryStyle.Render("  usage: open <guide>"))
		return
	}
	if err := a.orch.Open(ctx, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionOpen):
			fmt.Println(secondaryStyle.Render("  a session is already open; 'close' it first"))
		case errors.Is(err, domain.ErrNotFound):
			fmt.Println(urgentStyle.Render("  no guide named " + id))
		default:
			fmt.Println(urgentStyle.Render("  could not open session: " + err.Error()))
		}
		return
	}
	a.guideID = id
}

func (a *cliApp) closeSession() {
	if err := a.orch.Close(); err != nil {
		if !errors.Is(err, domain.ErrSessionClosed) {
			a.log.Error("closing session: %v", err)
		}
		return
	}
	a.guideID = ""
}

func (a *cliApp) showStatus(ctx context.Context) {
	m := a.orch.Machine()
	if m == nil {
		fmt.Println(secondaryStyle.Render("  no session open"))
		return
	}
	g, err := a.guides.Get(ctx, a.guideID)
	if err != nil {
		fmt.Println(urgentStyle.Render("  could not load guide: " + err.Error()))
		return
	}

	fmt.Printf("  %s — %s phase\n", g.Title, m.Phase())
	switch m.Phase() {
	case domain.PhasePreparation:
		for i, item := range g.Items {
			mark := "[ ]"
			if m.Completed(item.ID) {
				mark = doneStyle.Render("[x]")
			}
			cursor := "  "
			if i == m.StepIndex() {
				cursor = secondaryStyle.Render("->")
			}
			fmt.Printf("  %s %s %s\n", cursor, mark, item.Name)
		}
	case domain.PhaseCooking:
		fmt.Printf("  step %d of %d: %s\n", m.StepIndex()+1, g.StepCount(domain.PhaseCooking), g.Instructions[m.StepIndex()])
	}
}
