package parser

import (
	"reflect"
	"testing"
	"time"
)

func ts(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []TreeNode
		want    []int
		wantErr bool
	}{
		{
			name:  "empty",
			nodes: nil,
			want:  nil,
		},
		{
			name: "linear chain",
			nodes: []TreeNode{
				{ID: "a", Created: ts(1)},
				{ID: "b", Parent: "a", Created: ts(2)},
				{ID: "c", Parent: "b", Created: ts(3)},
			},
			want: []int{0, 1, 2},
		},
		{
			name: "newest leaf wins",
			nodes: []TreeNode{
				{ID: "a", Created: ts(1)},
				{ID: "b1", Parent: "a", Created: ts(5)},
				{ID: "b2", Parent: "a", Created: ts(3)},
			},
			want: []int{0, 1},
		},
		{
			name: "tie goes to last leaf in source order",
			nodes: []TreeNode{
				{ID: "a", Created: ts(1)},
				{ID: "b1", Parent: "a", Created: ts(4)},
				{ID: "b2", Parent: "a", Created: ts(4)},
			},
			want: []int{0, 2},
		},
		{
			name: "untimed leaf loses to timed leaf",
			nodes: []TreeNode{
				{ID: "a"},
				{ID: "b1", Parent: "a", Created: ts(2)},
				{ID: "b2", Parent: "a"},
			},
			want: []int{0, 1},
		},
		{
			name: "all untimed picks last leaf",
			nodes: []TreeNode{
				{ID: "a"},
				{ID: "b1", Parent: "a"},
				{ID: "b2", Parent: "a"},
			},
			want: []int{0, 2},
		},
		{
			name: "unknown parent is a root",
			nodes: []TreeNode{
				{ID: "a", Parent: "ghost", Created: ts(1)},
				{ID: "b", Parent: "a", Created: ts(2)},
			},
			want: []int{0, 1},
		},
		{
			name: "cycle",
			nodes: []TreeNode{
				{ID: "a", Parent: "b"},
				{ID: "b", Parent: "a"},
			},
			wantErr: true,
		},
		{
			name: "duplicate id",
			nodes: []TreeNode{
				{ID: "a"},
				{ID: "a"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Flatten(tt.nodes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Flatten() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlattenDeterministic(t *testing.T) {
	nodes := []TreeNode{
		{ID: "root"},
		{ID: "x", Parent: "root", Created: ts(10)},
		{ID: "y", Parent: "root", Created: ts(10)},
		{ID: "z", Parent: "x", Created: ts(10)},
	}
	first, err := Flatten(nodes)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		got, err := Flatten(nodes)
		if err != nil {
			t.Fatalf("Flatten() error = %v", err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("Flatten() = %v on run %d, want %v", got, i, first)
		}
	}
}
