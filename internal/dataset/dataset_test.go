package dataset

import (
	"math"
	"strings"
	"testing"
)

func mustDataset(t *testing.T, names []string, rows [][]string) *Dataset {
	t.Helper()
	ds, err := FromRecords(names, rows)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return ds
}

func TestFromRecordsShape(t *testing.T) {
	ds := mustDataset(t,
		[]string{"name", "age"},
		[][]string{{"alice", "30"}, {"bob", "45"}})

	if ds.NumRows() != 2 || ds.NumColumns() != 2 {
		t.Fatalf("got %dx%d, want 2x2", ds.NumRows(), ds.NumColumns())
	}
	names := ds.ColumnNames()
	if names[0] != "name" || names[1] != "age" {
		t.Errorf("ColumnNames = %v", names)
	}
	if _, ok := ds.Column("missing"); ok {
		t.Error("Column must report absence of an unknown name")
	}
}

func TestFromRecordsRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name  string
		cols  []string
		rows  [][]string
		wants string
	}{
		{"no columns", nil, nil, "at least one column"},
		{"empty name", []string{"a", ""}, nil, "empty name"},
		{"duplicate name", []string{"a", "a"}, nil, "duplicate"},
		{"ragged row", []string{"a", "b"}, [][]string{{"1"}}, "cells"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromRecords(tc.cols, tc.rows)
			if err == nil || !strings.Contains(err.Error(), tc.wants) {
				t.Fatalf("err = %v, want substring %q", err, tc.wants)
			}
		})
	}
}

func TestKindInference(t *testing.T) {
	ds := mustDataset(t,
		[]string{"numeric", "mixed", "blank", "padded"},
		[][]string{
			{"1.5", "1", "", " 2 "},
			{"-3", "x", "", "4"},
			{"", "2", "", ""},
		})

	wants := map[string]Kind{
		"numeric": KindNumeric, // empty cells do not break numeric inference
		"mixed":   KindText,
		"blank":   KindText, // all-empty columns stay text
		"padded":  KindNumeric,
	}
	for name, want := range wants {
		col, _ := ds.Column(name)
		if col.Kind() != want {
			t.Errorf("column %s: kind = %v, want %v", name, col.Kind(), want)
		}
	}
}

func TestValuesReturnsCopy(t *testing.T) {
	ds := mustDataset(t, []string{"c"}, [][]string{{"a"}, {"b"}})
	col, _ := ds.Column("c")
	vals := col.Values()
	vals[0] = "mutated"
	if got := col.Values()[0]; got != "a" {
		t.Fatalf("snapshot mutated through Values copy: %q", got)
	}
}

func TestFloatsMarksUnparseableCells(t *testing.T) {
	ds := mustDataset(t, []string{"c"}, [][]string{{"1.5"}, {"oops"}, {"-2"}})
	col, _ := ds.Column("c")
	vals, ok := col.Floats()
	if !ok[0] || ok[1] || !ok[2] {
		t.Fatalf("ok = %v, want [true false true]", ok)
	}
	if vals[0] != 1.5 || vals[1] != 0 || vals[2] != -2 {
		t.Fatalf("vals = %v", vals)
	}
}

func TestDistinctRatio(t *testing.T) {
	ds := mustDataset(t,
		[]string{"id", "repeat"},
		[][]string{{"1", "x"}, {"2", "x"}, {"3", "x"}, {"4", "y"}})

	id, _ := ds.Column("id")
	if got := id.DistinctRatio(); got != 1.0 {
		t.Errorf("all-distinct column ratio = %v, want 1", got)
	}
	rep, _ := ds.Column("repeat")
	if got := rep.DistinctRatio(); got != 0.5 {
		t.Errorf("repeat column ratio = %v, want 0.5", got)
	}
}

func TestFromCSV(t *testing.T) {
	const csvData = "name, age\nalice,30\nbob,45\n"
	ds, err := FromCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	if ds.NumRows() != 2 {
		t.Fatalf("NumRows = %d, want 2", ds.NumRows())
	}
	col, ok := ds.Column("age")
	if !ok {
		t.Fatal("age column missing after header trim")
	}
	if col.Kind() != KindNumeric {
		t.Errorf("age kind = %v, want numeric", col.Kind())
	}

	if _, err := FromCSV(strings.NewReader("")); err == nil {
		t.Error("empty CSV must be rejected")
	}
}

func TestCombinationUniqueness(t *testing.T) {
	ds := mustDataset(t,
		[]string{"a", "b"},
		[][]string{
			{"1", "x"},
			{"1", "x"},
			{"2", "x"},
			{"3", "y"},
		})

	// Two rows share {1,x}; the other two combinations are unique.
	got, err := ds.CombinationUniqueness([]string{"a", "b"})
	if err != nil {
		t.Fatalf("CombinationUniqueness: %v", err)
	}
	if got != 0.5 {
		t.Errorf("uniqueness = %v, want 0.5", got)
	}

	allUnique := mustDataset(t,
		[]string{"a", "b"},
		[][]string{{"1", "x"}, {"2", "x"}, {"3", "x"}})
	got, err = allUnique.CombinationUniqueness([]string{"a", "b"})
	if err != nil || got != 1.0 {
		t.Errorf("all-unique = (%v, %v), want (1, nil)", got, err)
	}

	if _, err := ds.CombinationUniqueness([]string{"a", "zzz"}); err == nil {
		t.Error("unknown column must be an error")
	}

	empty := mustDataset(t, []string{"a"}, nil)
	got, err = empty.CombinationUniqueness([]string{"a"})
	if err != nil || got != 0 {
		t.Errorf("empty dataset = (%v, %v), want (0, nil)", got, err)
	}
}

// Cell boundaries must not collide: {"ab",""} and {"a","b"} are different
// combinations.
func TestCombinationUniquenessBoundaries(t *testing.T) {
	ds := mustDataset(t,
		[]string{"a", "b"},
		[][]string{{"ab", ""}, {"a", "b"}})
	got, err := ds.CombinationUniqueness([]string{"a", "b"})
	if err != nil {
		t.Fatalf("CombinationUniqueness: %v", err)
	}
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("uniqueness = %v, want 1 for distinct combinations", got)
	}
}
