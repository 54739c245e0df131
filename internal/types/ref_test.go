package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{"5", TaskRef(5), false},
		{" 12 ", TaskRef(12), false},
		{"5.2", SubtaskRef(5, 2), false},
		{"1.10", SubtaskRef(1, 10), false},
		{"1.1", SubtaskRef(1, 1), false},
		{"5.0", TaskRef(5), false},
		{"3.01", SubtaskRef(3, 1), false},
		{"", Ref{}, true},
		{"0", Ref{}, true},
		{"-1", Ref{}, true},
		{"5.", Ref{}, true},
		{".5", Ref{}, true},
		{"1e3", Ref{}, true},
		{"abc", Ref{}, true},
		{"1.2.3", Ref{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRef(%q) = %v, want error", tt.in, got)
				}
				if !errors.Is(err, ErrInvalidRef) {
					t.Errorf("error %v does not wrap ErrInvalidRef", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRef(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRef(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRefJSON(t *testing.T) {
	refs := []Ref{TaskRef(3), SubtaskRef(1, 10), SubtaskRef(2, 1)}
	data, err := json.Marshal(refs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[3,1.10,2.1]" {
		t.Fatalf("marshal = %s", data)
	}

	var back []Ref
	if err := json.Unmarshal([]byte(`[3, 1.10, "2.1", "4"]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []Ref{TaskRef(3), SubtaskRef(1, 10), SubtaskRef(2, 1), TaskRef(4)}
	if len(back) != len(want) {
		t.Fatalf("got %v, want %v", back, want)
	}
	for i := range want {
		if back[i] != want[i] {
			t.Errorf("ref %d = %v, want %v", i, back[i], want[i])
		}
	}

	if _, err := json.Marshal(Ref{}); err == nil {
		t.Error("expected error marshaling zero ref")
	}
	var r Ref
	if err := json.Unmarshal([]byte(`true`), &r); err == nil {
		t.Error("expected error for boolean reference")
	}
}

func TestParseRefList(t *testing.T) {
	got, err := ParseRefList("1, 3.2,,7")
	if err != nil {
		t.Fatalf("ParseRefList: %v", err)
	}
	if len(got) != 3 || got[0] != TaskRef(1) || got[1] != SubtaskRef(3, 2) || got[2] != TaskRef(7) {
		t.Fatalf("ParseRefList = %v", got)
	}
	if _, err := ParseRefList("1,x"); err == nil {
		t.Fatal("expected error for malformed entry")
	}
}

func TestRefString(t *testing.T) {
	if s := SubtaskRef(4, 12).String(); s != "4.12" {
		t.Errorf("String() = %q", s)
	}
	if s := TaskRef(9).String(); s != "9" {
		t.Errorf("String() = %q", s)
	}
	if p := SubtaskRef(4, 12).Parent(); p != TaskRef(4) {
		t.Errorf("Parent() = %v", p)
	}
}
