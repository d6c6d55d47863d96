package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/bitparse/internal/decode"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType // Success, failure, or warning
	Title           string     // e.g., "tcp decoded"
	Details         []Param    // Key-value details, rendered in order
	Body            string     // Pre-rendered content below the details, such as a record tree
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewDecodeFailure builds a failure box for a decode error, with tips chosen by
// error type and one detail line per rejected dispatch candidate.
func NewDecodeFailure(format string, err error) *Result {
	r := NewFailureResult(format+" decode failed", err, Troubleshooting(err))
	if t, ok := decode.TypeOf(err); ok {
		r.AddDetail("Error type", t.String())
	}
	var de *decode.DecodeError
	if errors.As(err, &de) {
		for i, a := range de.Attempts {
			r.AddDetail(fmt.Sprintf("Attempt %d", i+1), a.Error())
		}
	}
	return r
}

// Troubleshooting returns hints for a decode error
func Troubleshooting(err error) []string {
	t, ok := decode.TypeOf(err)
	if !ok {
		return nil
	}
	switch t {
	case decode.ErrTypeInsufficientData:
		return []string{
			"The input ends before a field it declares",
			"Check that the capture was not truncated and that --bits is not too small",
		}
	case decode.ErrTypeConstraintViolation:
		return []string{
			"A field failed a fixed value or cross-field check",
			"Confirm --format matches the input",
		}
	case decode.ErrTypeUnknownDiscriminant:
		return []string{"A kind or type field holds a value the format does not define"}
	case decode.ErrTypeNoMatchingVariant:
		return []string{
			"No candidate format accepted the input",
			"Rerun with --log-level debug to see why each candidate was rejected",
		}
	case decode.ErrTypeLengthMismatch:
		return []string{
			"The format consumed a different number of bits than declared",
			"Adjust --bits or pick a format with a trailing payload",
		}
	case decode.ErrTypeInternalDefinition:
		return []string{"This is a defect in the format definition, not in the input"}
	}
	return nil
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// SetBody sets pre-rendered content shown below the details
func (r *Result) SetBody(body string) *Result {
	r.Body = body
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var title string
	var border lipgloss.Color
	switch r.Type {
	case ResultFailure:
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
		border = ErrorColor
	case ResultWarning:
		title = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, r.Title))
		border = WarningColor
	default:
		title = SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
		border = SuccessColor
	}

	lines := []string{"", title, ""}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	for _, d := range r.Details {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", d.Key))
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Body != "" {
		lines = append(lines, r.Body, "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	// Double border in the result color
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	// Indent within outer box
	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
