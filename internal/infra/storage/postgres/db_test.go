package postgres

import (
	"io/fs"
	"testing"
)

func TestDriverName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "pgx"},
		{in: "pgx", want: "pgx"},
		{in: "postgres", want: "postgres"},
		{in: "pq", want: "postgres"},
		{in: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		got, err := driverName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("driverName(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("driverName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected embedded migrations")
	}
}
