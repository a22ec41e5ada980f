package sandbox

import (
	"archive/tar"
	"encoding/binary"
	"io"
	"testing"
)

func frame(stream byte, payload string) []byte {
	header := make([]byte, 8)
	header[0] = stream
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	return append(header, payload...)
}

func TestDemuxOutput(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		wantStdout string
		wantStderr string
	}{
		{"empty", nil, "", ""},
		{"stdout", frame(1, "hello"), "hello", ""},
		{"stderr", frame(2, "boom"), "", "boom"},
		{
			"interleaved",
			append(append(frame(1, "a\n"), frame(2, "b\n")...), frame(1, "c\n")...),
			"a\nc\n", "b\n",
		},
		{"truncated frame", frame(1, "hello")[:10], "he", ""},
		{"raw tty output", []byte("plain text output"), "plain text output", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr := demuxOutput(tt.input)
			if stdout != tt.wantStdout || stderr != tt.wantStderr {
				t.Errorf("demuxOutput() = (%q, %q), want (%q, %q)", stdout, stderr, tt.wantStdout, tt.wantStderr)
			}
		})
	}
}

func TestTarFiles(t *testing.T) {
	r, err := tarFiles(map[string]string{
		"b.go":        "package b",
		"a/a_test.go": "package a",
		"./c/../c.go": "package c",
	})
	if err != nil {
		t.Fatalf("tarFiles() error = %v", err)
	}

	tr := tar.NewReader(r)
	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		names = append(names, h.Name)
	}

	want := []string{"c.go", "a/a_test.go", "b.go"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names = %v, want %v", names, want)
			break
		}
	}
}

func TestTarFiles_RejectsEscapes(t *testing.T) {
	for _, name := range []string{"../evil.go", "/etc/passwd", "a/../../x"} {
		if _, err := tarFiles(map[string]string{name: "x"}); err == nil {
			t.Errorf("tarFiles(%q) error = nil, want error", name)
		}
	}
}
