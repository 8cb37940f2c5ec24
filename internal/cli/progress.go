package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/suito/internal/model"
)

// PredictionProgress tracks a streaming batch prediction on the terminal.
type PredictionProgress struct {
	writer    io.Writer
	bar       *progressbar.ProgressBar
	failures  []model.EnrichmentResult
	total     int
	succeeded int
}

// NewPredictionProgress creates a progress bar for total parcels.
func NewPredictionProgress(writer io.Writer, total int) *PredictionProgress {
	if writer == nil {
		writer = os.Stderr
	}
	p := &PredictionProgress{writer: writer, total: total}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Predicting growth stages...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Record advances the bar by one result.
func (p *PredictionProgress) Record(result model.EnrichmentResult) {
	if result.OK() {
		p.succeeded++
	} else {
		p.failures = append(p.failures, result)
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Done returns how many results were recorded.
func (p *PredictionProgress) Done() int {
	return p.succeeded + len(p.failures)
}

// Failures returns the failed results in arrival order.
func (p *PredictionProgress) Failures() []model.EnrichmentResult {
	return p.failures
}

// Summary renders the outcome box.
func (p *PredictionProgress) Summary() string {
	content := fmt.Sprintf("  • Predicted: %d\n", p.succeeded) +
		fmt.Sprintf("  • Failed: %d\n", len(p.failures))
	if skipped := p.total - p.Done(); skipped > 0 {
		content += fmt.Sprintf("  • Not attempted: %d\n", skipped)
	}
	for _, f := range p.failures {
		content += "\n" + FormatError(f.ParcelID+": "+f.ErrorMessage)
	}
	return RenderBox("Prediction Complete", content)
}
