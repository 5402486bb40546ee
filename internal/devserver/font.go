package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	consolestream "github.com/wolfeidau/console-stream"
	"github.com/wolfeidau/scriptpack/internal/telemetry"
)

const (
	// ExitCodeHeader reports the font command's exit code on the redirect.
	ExitCodeHeader = "X-Font-Exit-Code"

	fontLogPrefix = "FONT>>"
)

// FontRegenerator runs the font regeneration command. Each call starts its
// own process; concurrent calls are not serialized.
type FontRegenerator struct {
	command string
	args    []string
}

// NewFontRegenerator parses commandLine with shell quoting rules.
func NewFontRegenerator(commandLine string) (*FontRegenerator, error) {
	words, err := shellquote.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("invalid font command %q: %w", commandLine, err)
	}
	if len(words) == 0 {
		return nil, errors.New("font command is empty")
	}
	return &FontRegenerator{command: words[0], args: words[1:]}, nil
}

// Run executes the command to completion, streaming its output to the log,
// and returns the exit code. A command that cannot be started reports -1.
func (f *FontRegenerator) Run(ctx context.Context) int {
	logger := log.With().Str("run_id", uuid.New().String()).Str("command", f.command).Logger()
	metrics := telemetry.GetMetrics()
	metrics.FontRunsTotal.Add(ctx, 1)

	process := consolestream.NewProcess(f.command, f.args,
		consolestream.WithPipeMode(),
		consolestream.WithFlushInterval(100*time.Millisecond),
	)

	exitCode := -1
events:
	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			logger.Error().Err(err).Msg(fontLogPrefix + " Failed to run font command")
			break
		}

		switch e := event.Event.(type) {
		case *consolestream.ProcessStart:
			logger.Debug().Int("pid", e.PID).Msg(fontLogPrefix + " Started")
		case *consolestream.OutputData:
			logOutput(logger, e.Data)
		case *consolestream.ProcessEnd:
			exitCode = e.ExitCode
			break events
		}
	}

	if exitCode != 0 {
		metrics.FontFailuresTotal.Add(ctx, 1)
	}
	logger.Info().Int("exit_code", exitCode).Msg(fontLogPrefix + " Exited with code " + strconv.Itoa(exitCode))
	return exitCode
}

// ServeHTTP regenerates fonts and redirects back to the referring page. The
// redirect happens whatever the outcome; the exit code travels in
// ExitCodeHeader. Only GET starts a run.
func (f *FontRegenerator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// a font run may take longer than the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn().Err(err).Msg("Failed to clear write deadline for font run")
	}

	// the process outlives a client that goes away
	exitCode := f.Run(context.WithoutCancel(r.Context()))

	target := r.Referer()
	if target == "" {
		target = "/"
	}

	w.Header().Set(ExitCodeHeader, strconv.Itoa(exitCode))
	http.Redirect(w, r, target, http.StatusFound)
}

func logOutput(logger zerolog.Logger, data []byte) {
	for line := range bytes.Lines(data) {
		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}
		logger.Info().Msg(fontLogPrefix + " " + string(line))
	}
}
