package path

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		p    string
		elem []string
		want string
	}{
		{name: "relative env", p: ".env", want: filepath.Join("/srv/app", ".env")},
		{name: "relative yaml under conf", p: "config.yaml", elem: []string{"conf"}, want: filepath.Join("/srv/app", "conf", "config.yaml")},
		{name: "absolute", p: "/etc/opsboard.yaml", elem: []string{"conf"}, want: "/etc/opsboard.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve("/srv/app", tt.p, tt.elem...); got != tt.want {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
}

func TestExistsAndRoot(t *testing.T) {
	ok, err := Exists(filepath.Join(RootPath(), "go.mod"))
	if err != nil || !ok {
		t.Fatalf("go.mod should exist under root: ok=%v err=%v", ok, err)
	}
	ok, err = Exists(filepath.Join(t.TempDir(), "missing"))
	if err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(RootPath()); err != nil {
		t.Fatalf("root: %v", err)
	}
}
