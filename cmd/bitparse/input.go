package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// parseHex decodes a hex string. Whitespace, ':' and ',' separators and "0x"
// prefixes on individual bytes are ignored, so "7e 03", "7e:03" and
// "0x7e,0x03" are equivalent.
func parseHex(s string) ([]byte, error) {
	var b strings.Builder
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ':' || r == ','
	}) {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		b.WriteString(tok)
	}
	digits := b.String()
	if digits == "" {
		return nil, fmt.Errorf("no hex digits in input")
	}
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits (%d)", len(digits))
	}
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// inputSource describes where the message bytes come from
type inputSource struct {
	Hex  string   // --hex value
	File string   // --file path, "-" for stdin
	Args []string // Positional hex arguments
	Raw  bool     // File and stdin hold raw bytes rather than hex text
}

// read returns the message bytes. Positional arguments and --hex are hex text;
// files and stdin are hex text unless Raw is set.
func (s inputSource) read(stdin io.Reader) ([]byte, error) {
	sources := 0
	for _, set := range []bool{s.Hex != "", s.File != "", len(s.Args) > 0} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("use only one of --hex, --file or hex arguments")
	}

	switch {
	case s.Hex != "":
		return parseHex(s.Hex)
	case len(s.Args) > 0:
		return parseHex(strings.Join(s.Args, " "))
	}

	var r io.Reader = stdin
	name := "stdin"
	if s.File != "" && s.File != "-" {
		f, err := os.Open(s.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r, name = f, s.File
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if s.Raw {
		if len(content) == 0 {
			return nil, fmt.Errorf("%s is empty", name)
		}
		return content, nil
	}
	return parseHex(string(content))
}
