package bot

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		prefix string
		ok     bool
		want   Command
	}{
		{
			name:   "no prefix",
			line:   "tugas-tambah A, B, 25-11-2025 10:00",
			prefix: "!",
		},
		{
			name:   "prefix not at start",
			line:   "halo !tugas",
			prefix: "!",
		},
		{
			name:   "keyword only",
			line:   "  !TUGAS  ",
			prefix: "!",
			ok:     true,
			want:   Command{Keyword: "tugas", Args: []string{}},
		},
		{
			name:   "fields are trimmed",
			line:   "!tugas-tambah PR Matematika ,  Bab 1,25-11-2025 10:00",
			prefix: "!",
			ok:     true,
			want: Command{
				Keyword: "tugas-tambah",
				Args:    []string{"PR", "Matematika", ",", "Bab", "1,25-11-2025", "10:00"},
				Fields:  []string{"PR Matematika", "Bab 1", "25-11-2025 10:00"},
			},
		},
		{
			name:   "space after prefix",
			line:   "!  commands",
			prefix: "!",
			ok:     true,
			want:   Command{Keyword: "commands", Args: []string{}},
		},
		{
			name:   "unicode dashes normalized",
			line:   "!tugas–tambah A, B, 25−11‒2025 10:00, H－24",
			prefix: "!",
			ok:     true,
			want: Command{
				Keyword: "tugas-tambah",
				Args:    []string{"A,", "B,", "25-11-2025", "10:00,", "H-24"},
				Fields:  []string{"A", "B", "25-11-2025 10:00", "H-24"},
			},
		},
		{
			name:   "tz alias",
			line:   "!tz wita",
			prefix: "!",
			ok:     true,
			want:   Command{Keyword: KeywordTimezoneEdit, Args: []string{"wita"}, Fields: []string{"wita"}},
		},
		{
			name:   "timezone alias",
			line:   "!Timezone WIT",
			prefix: "!",
			ok:     true,
			want:   Command{Keyword: KeywordTimezoneEdit, Args: []string{"WIT"}, Fields: []string{"WIT"}},
		},
		{
			name:   "custom prefix",
			line:   "/tugas-hapus PR Matematika",
			prefix: "/",
			ok:     true,
			want:   Command{Keyword: "tugas-hapus", Args: []string{"PR", "Matematika"}, Fields: []string{"PR Matematika"}},
		},
		{
			name:   "prefix alone",
			line:   "!",
			prefix: "!",
			ok:     true,
		},
		{
			name:   "empty fields kept",
			line:   "!tugas-tambah , B,",
			prefix: "!",
			ok:     true,
			want:   Command{Keyword: "tugas-tambah", Args: []string{",", "B,"}, Fields: []string{"", "B", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.line, tt.prefix)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Keyword != tt.want.Keyword {
				t.Fatalf("keyword = %q, want %q", got.Keyword, tt.want.Keyword)
			}
			if len(got.Args) != len(tt.want.Args) || (len(got.Args) > 0 && !reflect.DeepEqual(got.Args, tt.want.Args)) {
				t.Fatalf("args = %q, want %q", got.Args, tt.want.Args)
			}
			if len(got.Fields) != len(tt.want.Fields) || (len(got.Fields) > 0 && !reflect.DeepEqual(got.Fields, tt.want.Fields)) {
				t.Fatalf("fields = %q, want %q", got.Fields, tt.want.Fields)
			}
		})
	}
}
