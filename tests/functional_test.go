package tests

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/funvibe/tern/internal/config"
	"github.com/funvibe/tern/internal/vm"
	"github.com/funvibe/tern/pkg/tern"
)

// TestFunctional runs every testdata script and compares combined
// output (prints first, then diagnostics) with its .want file.
func TestFunctional(t *testing.T) {
	var testFiles []string
	err := filepath.Walk("testdata", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, config.SourceFileExt) {
			return nil
		}
		wantFile := strings.TrimSuffix(path, config.SourceFileExt) + ".want"
		if _, err := os.Stat(wantFile); err == nil {
			testFiles = append(testFiles, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk testdata: %v", err)
	}
	if len(testFiles) == 0 {
		t.Skip("no test files with .want found")
	}

	for _, testFile := range testFiles {
		testFile := testFile
		testName := strings.TrimSuffix(filepath.Base(testFile), config.SourceFileExt)

		t.Run(testName, func(t *testing.T) {
			source, err := os.ReadFile(testFile)
			if err != nil {
				t.Fatalf("failed to read source: %v", err)
			}
			wantFile := strings.TrimSuffix(testFile, config.SourceFileExt) + ".want"
			wantBytes, err := os.ReadFile(wantFile)
			if err != nil {
				t.Fatalf("failed to read .want file: %v", err)
			}
			want := strings.TrimSpace(string(wantBytes))

			got := strings.TrimSpace(run(string(source)))
			if got != want {
				t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

// run executes source and renders output the way the CLI does:
// stdout first, then diagnostics.
func run(source string) string {
	var stdout, stderr bytes.Buffer

	program, err := tern.Compile(source)
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				stderr.WriteString(e.Error() + "\n")
			}
		} else {
			stderr.WriteString(err.Error() + "\n")
		}
		return stderr.String()
	}

	if err := program.Run(&stdout); err != nil {
		var rerr *vm.RuntimeError
		if errors.As(err, &rerr) {
			stderr.WriteString(rerr.Message + "\n")
			stderr.WriteString(rerr.Stack())
		} else {
			stderr.WriteString(err.Error() + "\n")
		}
	}

	out := strings.TrimSpace(stdout.String())
	diag := strings.TrimSpace(stderr.String())
	switch {
	case out != "" && diag != "":
		return out + "\n" + diag
	case out != "":
		return out
	default:
		return diag
	}
}
