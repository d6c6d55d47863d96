// Package ui renders bitparse output for terminals.
//
// Components follow a "run once and exit" pattern: they render styled text
// with Lipgloss and return it as a string, never taking over the terminal.
//
//   - Header: command banner showing the operation and its parameters
//   - RecordView: indented field tree of a decoded record with bit offsets
//   - Result: success, warning and failure boxes; NewDecodeFailure picks
//     troubleshooting tips from the decode error type
//   - Confirm: yes/no prompt used before overwriting files
//
// Color follows terminal detection unless SetColorMode forces it on or off.
// Widths come from golang.org/x/term and are clamped between
// MinTerminalWidth and MaxContentWidth.
package ui
