package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr string
	}{
		{name: "plain", input: "7e03", want: []byte{0x7e, 0x03}},
		{name: "spaced", input: "7e 03\n01", want: []byte{0x7e, 0x03, 0x01}},
		{name: "colons", input: "7e:03:FF", want: []byte{0x7e, 0x03, 0xff}},
		{name: "prefixed", input: "0x7e,0x03", want: []byte{0x7e, 0x03}},
		{name: "empty", input: "  \n", wantErr: "no hex digits"},
		{name: "odd", input: "7e0", wantErr: "odd number"},
		{name: "not hex", input: "zz", wantErr: "invalid hex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHex(tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("parseHex(%q) error = %v, want containing %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHex(%q) error = %v", tt.input, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("parseHex(%q) = %x, want %x", tt.input, got, tt.want)
			}
		})
	}
}

func TestInputSourceRead(t *testing.T) {
	dir := t.TempDir()
	hexFile := filepath.Join(dir, "msg.hex")
	if err := os.WriteFile(hexFile, []byte("01 23\n"), 0600); err != nil {
		t.Fatal(err)
	}
	rawFile := filepath.Join(dir, "msg.bin")
	if err := os.WriteFile(rawFile, []byte{0x01, 0x23}, 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     inputSource
		stdin   string
		want    []byte
		wantErr string
	}{
		{name: "hex flag", src: inputSource{Hex: "0123"}, want: []byte{0x01, 0x23}},
		{name: "args", src: inputSource{Args: []string{"01", "23"}}, want: []byte{0x01, 0x23}},
		{name: "hex file", src: inputSource{File: hexFile}, want: []byte{0x01, 0x23}},
		{name: "raw file", src: inputSource{File: rawFile, Raw: true}, want: []byte{0x01, 0x23}},
		{name: "stdin hex", src: inputSource{}, stdin: "01:23", want: []byte{0x01, 0x23}},
		{name: "stdin dash", src: inputSource{File: "-"}, stdin: "0123", want: []byte{0x01, 0x23}},
		{name: "raw stdin empty", src: inputSource{Raw: true}, wantErr: "stdin is empty"},
		{name: "two sources", src: inputSource{Hex: "01", Args: []string{"23"}}, wantErr: "only one of"},
		{name: "missing file", src: inputSource{File: filepath.Join(dir, "nope")}, wantErr: "failed to open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.src.read(strings.NewReader(tt.stdin))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("read() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("read() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("read() = %x, want %x", got, tt.want)
			}
		})
	}
}
