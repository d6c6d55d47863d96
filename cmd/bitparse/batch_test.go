package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/kylelemons/godebug/pretty"

	"github.com/muurk/bitparse/internal/protocol"
)

const captureFile = `# mixed capture
0123
05

{"message_num": 3, "payload_hex": "0102"}
7e 03 01
not hex
`

func TestBatchProcess(t *testing.T) {
	format, _ := protocol.Lookup("pdu")
	stats := newBatchStats()
	stats.process("capture.hex", strings.NewReader(captureFile), format)

	if stats.Files != 1 || stats.Messages != 5 {
		t.Fatalf("files/messages = %d/%d, want 1/5", stats.Files, stats.Messages)
	}
	if stats.Success != 3 || stats.Failure != 2 {
		t.Errorf("success/failure = %d/%d, want 3/2", stats.Success, stats.Failure)
	}

	wantDecoded := map[string]int{"multiple_field_header": 2, "single_field_header": 1}
	if diff := pretty.Compare(stats.Decoded, wantDecoded); diff != "" {
		t.Errorf("decoded diff (-got +want):\n%s", diff)
	}
	wantErrors := map[string]int{"NoMatchingVariant": 1, "InvalidInput": 1}
	if diff := pretty.Compare(stats.Errors, wantErrors); diff != "" {
		t.Errorf("errors diff (-got +want):\n%s", diff)
	}
	wantLengths := map[int]int{1: 1, 2: 2, 3: 1}
	if diff := pretty.Compare(stats.Lengths, wantLengths); diff != "" {
		t.Errorf("lengths diff (-got +want):\n%s", diff)
	}

	if len(stats.Failures) != 2 {
		t.Fatalf("failures = %+v, want 2", stats.Failures)
	}
	if f := stats.Failures[0]; f.Line != 6 || f.Hex != "7e 03 01" {
		t.Errorf("first failure = %+v, want line 6 hex \"7e 03 01\"", f)
	}
	if f := stats.Failures[1]; f.Line != 7 {
		t.Errorf("second failure line = %d, want 7", f.Line)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jsonl", "a.hex", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "notes.txt")

	files, err := collectFiles([]string{dir, single})
	if err != nil {
		t.Fatalf("collectFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.hex"), filepath.Join(dir, "b.jsonl"), single}
	if diff := pretty.Compare(files, want); diff != "" {
		t.Errorf("files diff (-got +want):\n%s", diff)
	}

	if _, err := collectFiles([]string{t.TempDir()}); err == nil {
		t.Error("collectFiles() on an empty directory succeeded")
	}
	if _, err := collectFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("collectFiles() on a missing path succeeded")
	}
}

func TestPrintBatch(t *testing.T) {
	format, _ := protocol.Lookup("pdu")
	stats := newBatchStats()
	stats.process("capture.hex", strings.NewReader(captureFile), format)

	var out bytes.Buffer
	printBatch(&out, "pdu", stats, 1)
	for _, want := range []string{"BATCH", "2 messages failed to decode", "multiple_field_header", "showing 1 of 2", "capture.hex:6"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "capture.hex:7") {
		t.Errorf("output lists more failures than asked:\n%s", out.String())
	}
}

func TestBatchCompressedCaptures(t *testing.T) {
	dir := t.TempDir()

	var zbuf bytes.Buffer
	zw, err := zstd.NewWriter(&zbuf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(captureFile)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.hex.zst"), zbuf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	var gbuf bytes.Buffer
	gw := gzip.NewWriter(&gbuf)
	if _, err := gw.Write([]byte("0123\n")); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.jsonl.gz"), gbuf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	files, err := collectFiles([]string{dir})
	if err != nil {
		t.Fatalf("collectFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want both captures", files)
	}

	format, _ := protocol.Lookup("pdu")
	stats := newBatchStats()
	for _, f := range files {
		if err := stats.processFile(f, format); err != nil {
			t.Fatalf("processFile(%s) error = %v", f, err)
		}
	}
	if stats.Files != 2 || stats.Messages != 6 || stats.Success != 4 {
		t.Errorf("files/messages/success = %d/%d/%d, want 2/6/4", stats.Files, stats.Messages, stats.Success)
	}
}

func TestOpenCaptureCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hex.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := openCapture(path); err == nil {
		t.Error("openCapture() accepted a corrupt gzip file")
	}
}
