package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

// initContext returns a context carrying a kong context parsed from args
// against a small flag model writing its configuration to confPath.
func initContext(t *testing.T, confPath string, args ...string) context.Context {
	t.Helper()

	var cli struct {
		Verbose bool     `help:"Enable verbose output"`
		Output  string   `help:"Output file"`
		Count   int      `help:"Number of items"`
		Source  []string `help:"Source files"`
		Tags    []string `help:"Tags"`
	}

	parser, err := kong.New(&cli, kong.Vars{ConfigIdentifier: confPath})
	if err != nil {
		t.Fatal(err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatal(err)
	}

	return WithContext(context.Background(), kctx)
}

// TestInitRun tests the Init.Run command.
func TestInitRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		force   bool
		exists  bool
		wantErr error
	}{
		{name: "create_new_config"},
		{name: "overwrite_existing_with_force", force: true, exists: true},
		{name: "fail_without_force", exists: true, wantErr: ErrFileExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			confPath := filepath.Join(t.TempDir(), "config")

			if tt.exists {
				if err := os.WriteFile(confPath, []byte("existing content"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			ctx := initContext(t, confPath, "--verbose")

			err := (&Init{Force: tt.force}).Run(ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Init.Run() error = %v, want %v", err, tt.wantErr)
				}

				content, _ := os.ReadFile(confPath)
				if string(content) != "existing content" {
					t.Errorf("existing file was modified: %q", content)
				}

				return
			}

			if err != nil {
				t.Fatalf("Init.Run() unexpected error = %v", err)
			}

			content, err := os.ReadFile(confPath)
			if err != nil {
				t.Fatal(err)
			}

			var doc map[string]map[string]any
			if err := yaml.Unmarshal(content, &doc); err != nil {
				t.Fatalf("generated config is not valid YAML: %v\n%s", err, content)
			}

			if doc[ConfigKey]["verbose"] != true {
				t.Errorf("expected verbose: true, got %s", content)
			}
		})
	}
}

// TestInitFormatOutput tests that init writes flag values in declaration
// order, omitting unset and ignored flags.
func TestInitFormatOutput(t *testing.T) {
	t.Parallel()

	confPath := filepath.Join(t.TempDir(), "config")

	ctx := initContext(t, confPath,
		"--output=test.txt", "--count=5", "--source=x.txt", "--tags=a,b",
	)

	if err := (&Init{}).Run(ctx); err != nil {
		t.Fatalf("Init.Run() unexpected error = %v", err)
	}

	content, err := os.ReadFile(confPath)
	if err != nil {
		t.Fatal(err)
	}

	output := string(content)

	want := strings.Join([]string{
		ConfigKey + ":",
		"  verbose: false",
		"  output: test.txt",
		"  count: 5",
		"  tags:",
		"  - a",
		"  - b",
		"",
	}, "\n")

	if diff := cmp.Diff(want, output); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// TestInitWithInvalidPath tests init with an invalid file path.
func TestInitWithInvalidPath(t *testing.T) {
	t.Parallel()

	ctx := initContext(t, "/nonexistent/directory/config")

	err := (&Init{}).Run(ctx)
	if !errors.Is(err, ErrWriteConfig) {
		t.Errorf("Init.Run() expected ErrWriteConfig, got %v", err)
	}
}

func TestInitWithoutKongContext(t *testing.T) {
	t.Parallel()

	if err := (&Init{}).Run(context.Background()); !errors.Is(err, ErrNoKongContext) {
		t.Errorf("expected ErrNoKongContext, got %v", err)
	}
}

func TestFlagValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"string", "x", "x"},
		{"empty slice", []string{}, nil},
		{"slice", []string{"a"}, []string{"a"}},
		{"bool", false, false},
		{"int", 3, 3},
		{"stringer", stringValue("s"), "s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, flagValue(tt.in)); diff != "" {
				t.Errorf("flagValue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type stringValue string

func (s stringValue) String() string { return string(s) }
