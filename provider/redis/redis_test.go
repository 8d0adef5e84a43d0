package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"entry:module:scf:":    "entry:module:scf:",
		"entry:user:a*b:":      `entry:user:a\*b:`,
		"entry:module:[x]?:":   `entry:module:\[x\]\?:`,
		`entry:module:back\s:`: `entry:module:back\\s:`,
	}
	for in, want := range cases {
		if got := escapeGlob(in); got != want {
			t.Fatalf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("err = %v, want ErrNilClient", err)
	}
}

func TestWalkRejectsCluster(t *testing.T) {
	c := goredis.NewClusterClient(&goredis.ClusterOptions{Addrs: []string{"127.0.0.1:0"}})
	defer c.Close()
	p, err := New(Config{Client: c, KeyPrefix: "t/"})
	if err != nil {
		t.Fatal(err)
	}
	if p.key("entry:x:k") != "t/entry:x:k" {
		t.Fatalf("key = %q", p.key("entry:x:k"))
	}
	err = p.Walk(context.Background(), "entry:", func(string, []byte) (bool, error) { return true, nil })
	if err != ErrWalkUnsupported {
		t.Fatalf("err = %v, want ErrWalkUnsupported", err)
	}
}
