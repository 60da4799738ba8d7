package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"xcreator/pkg/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("empty store should load nothing: ok=%v err=%v", ok, err)
	}
	sess := domain.Session{Token: "tok-1", UserID: "7"}
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != sess {
		t.Fatalf("loaded %+v, want %+v", got, sess)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("cleared store should load nothing")
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clearing an empty store should succeed: %v", err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("corrupt file should read as no session: ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "", time.Hour)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("empty store should load nothing: ok=%v err=%v", ok, err)
	}
	sess := domain.Session{Token: "tok-1", UserID: "7"}
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != sess {
		t.Fatalf("loaded %+v, want %+v", got, sess)
	}

	srv.FastForward(2 * time.Hour)
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("session should expire with the TTL")
	}

	if err := store.Save(sess); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Fatalf("cleared store should load nothing")
	}
}
