package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/orchestrator"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/spf13/cobra"
)

func newTranscribeCmd(state *runtimeState) *cobra.Command {
	transcribeCmd := &cobra.Command{
		Use:   "transcribe <video-id-or-url>",
		Short: "Acquire one transcript from the command line",
		Long: `Run a single acquisition through the same cascade and cache the server uses
and print the transcript. Usage is charged to --caller.`,
		Example: `  readtube-api transcribe dQw4w9WgXcQ
  readtube-api transcribe https://youtu.be/dQw4w9WgXcQ --lang de --strategy force-local --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, state, args[0])
		},
	}

	transcribeCmd.Flags().String("lang", "", "preferred transcript language")
	transcribeCmd.Flags().StringSlice("fallback-lang", nil, "caption languages tried after --lang")
	transcribeCmd.Flags().String("strategy", "", "strategy hint: force-local or force-remote")
	transcribeCmd.Flags().Int("max-duration", 0, "longest video to download audio for, in seconds")
	transcribeCmd.Flags().String("caller", "cli", "caller id charged for the transcription")
	transcribeCmd.Flags().Bool("json", false, "print the full result as JSON")
	return transcribeCmd
}

func runTranscribe(cmd *cobra.Command, state *runtimeState, input string) error {
	videoID, err := youtube.ParseVideoID(input)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	lang, _ := flags.GetString("lang")
	fallbacks, _ := flags.GetStringSlice("fallback-lang")
	strategy, _ := flags.GetString("strategy")
	maxDuration, _ := flags.GetInt("max-duration")
	caller, _ := flags.GetString("caller")
	asJSON, _ := flags.GetBool("json")

	hint, err := models.ParseStrategyHint(strategy)
	if err != nil {
		return err
	}
	if maxDuration < 0 {
		return fmt.Errorf("--max-duration must not be negative")
	}

	a, err := buildApp(cmd.Context(), state.cfg, state.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.transcription.Acquire(cmd.Context(), &models.TranscriptionRequest{
		Video:              models.VideoRef{ID: videoID},
		PreferredLanguage:  lang,
		Languages:          fallbacks,
		MaxDurationSeconds: maxDuration,
		Strategy:           hint,
		CallerID:           caller,
		RequestID:          uuid.NewString(),
	})
	if err != nil {
		var failure *orchestrator.Failure
		if errors.As(err, &failure) {
			printAttempts(cmd.ErrOrStderr(), failure)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, result.Text)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nsource=%s method=%s cost=%dmin chars=%d cached=%t elapsed=%dms\n",
		result.Source, result.ModelOrMethod, result.CostEstimate, result.LengthChars, result.Cached, result.ProcessingTimeMs)
	return nil
}

// printAttempts writes the per-strategy outcomes of a failed acquisition
func printAttempts(w io.Writer, failure *orchestrator.Failure) {
	fmt.Fprintln(w, "Strategies tried:")
	for _, a := range failure.Attempts {
		fmt.Fprintf(w, "  %-16s %-8s %-22s %s\n", a.Strategy, a.Outcome, a.Code, a.Message)
	}
	for _, s := range failure.Suggestions {
		fmt.Fprintf(w, "  hint: %s\n", s)
	}
}
