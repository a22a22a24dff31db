package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/atsub/subst"
)

func TestDecodeContexts(t *testing.T) {
	t.Parallel()

	shape := subst.Shape{subst.SlotOf[any]("req"), subst.SlotOf[any]("conn")}

	tests := []struct {
		name    string
		stream  string
		want    []subst.Context
		wantErr error
	}{
		{name: "empty stream"},
		{
			name:   "single document",
			stream: "req: {method: GET}\nconn: 7\n",
			want: []subst.Context{
				{map[string]any{"method": "GET"}, uint64(7)},
			},
		},
		{
			name:   "omitted slot is nil",
			stream: "conn: x\n---\nreq: y\n",
			want: []subst.Context{
				{nil, "x"},
				{"y", nil},
			},
		},
		{
			name:    "undeclared slot",
			stream:  "req: 1\n---\nother: 2\n",
			wantErr: ErrUnknownSlot,
		},
		{
			name:    "not a mapping",
			stream:  "- 1\n- 2\n",
			wantErr: ErrContextDoc,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeContexts(strings.NewReader(tt.stream), shape)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("DecodeContexts() error = %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeContexts() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadContexts(t *testing.T) {
	t.Parallel()

	shape := subst.Shape{subst.SlotOf[any]("a")}

	got, err := loadContexts(nil, shape)
	if err != nil {
		t.Fatalf("loadContexts(nil) error = %v", err)
	}

	if diff := cmp.Diff([]subst.Context{{nil}}, got); diff != "" {
		t.Errorf("loadContexts(nil) mismatch (-want +got):\n%s", diff)
	}

	paths := writeFiles(t, map[string]string{
		"one.yaml": "a: 1\n---\na: 2\n",
		"two.yaml": "a: 3\n",
		"bad.yaml": "b: 1\n",
	})

	got, err = loadContexts([]string{paths["one.yaml"], paths["two.yaml"]}, shape)
	if err != nil {
		t.Fatalf("loadContexts() error = %v", err)
	}

	want := []subst.Context{{uint64(1)}, {uint64(2)}, {uint64(3)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loadContexts() mismatch (-want +got):\n%s", diff)
	}

	if _, err := loadContexts([]string{paths["bad.yaml"]}, shape); !errors.Is(err, ErrUnknownSlot) {
		t.Errorf("expected ErrUnknownSlot, got %v", err)
	}

	if _, err := loadContexts([]string{"/nonexistent.yaml"}, shape); !errors.Is(err, ErrOpenFile) {
		t.Errorf("expected ErrOpenFile, got %v", err)
	}
}
