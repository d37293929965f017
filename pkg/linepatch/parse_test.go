package linepatch

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		diff string
		want []Operation
	}{
		{
			name: "empty",
			diff: "",
			want: nil,
		},
		{
			name: "replace pair",
			diff: "-b\n+B",
			want: []Operation{{Type: OperationReplace, Old: "b", New: "B"}},
		},
		{
			name: "delete then replace",
			diff: "-a\n-b\n+B",
			want: []Operation{
				{Type: OperationDelete, Old: "a"},
				{Type: OperationReplace, Old: "b", New: "B"},
			},
		},
		{
			name: "insert before delete is not merged",
			diff: "+x\n-y",
			want: []Operation{
				{Type: OperationInsert, New: "x"},
				{Type: OperationDelete, Old: "y"},
			},
		},
		{
			name: "replace followed by extra inserts",
			diff: "-a\n+A\n+A2",
			want: []Operation{
				{Type: OperationReplace, Old: "a", New: "A"},
				{Type: OperationInsert, New: "A2"},
			},
		},
		{
			name: "crlf diff",
			diff: "-a\r\n+b\r\n",
			want: []Operation{{Type: OperationReplace, Old: "a", New: "b"}},
		},
		{
			name: "noise is ignored",
			diff: "@@ -1,3 +1,3 @@\n context\n\nplain text\n-old\n trailing",
			want: []Operation{{Type: OperationDelete, Old: "old"}},
		},
		{
			name: "blank line breaks a pair",
			diff: "-old\n\n+new",
			want: []Operation{
				{Type: OperationDelete, Old: "old"},
				{Type: OperationInsert, New: "new"},
			},
		},
		{
			name: "bare prefixes target empty lines",
			diff: "-\n+",
			want: []Operation{{Type: OperationReplace, Old: "", New: ""}},
		},
		{
			name: "whitespace after prefix is kept",
			diff: "- indented\n+  more",
			want: []Operation{{Type: OperationReplace, Old: " indented", New: "  more"}},
		},
		{
			name: "file markers are treated as edits",
			diff: "--- a/file.txt\n+++ b/file.txt",
			want: []Operation{{Type: OperationReplace, Old: "-- a/file.txt", New: "++ b/file.txt"}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Parse(tc.diff); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Parse(%q) = %#v, want %#v", tc.diff, got, tc.want)
			}
		})
	}
}

func TestParseConsumesMinusLineOnce(t *testing.T) {
	t.Parallel()

	ops := Parse("-a\n+b\n+c\n-d\n-e\n+f")
	var replaces, deletes, inserts int
	for _, op := range ops {
		switch op.Type {
		case OperationReplace:
			replaces++
		case OperationDelete:
			deletes++
		case OperationInsert:
			inserts++
		}
	}
	if replaces != 2 || deletes != 1 || inserts != 1 {
		t.Fatalf("unexpected operation mix: %#v", ops)
	}
}
