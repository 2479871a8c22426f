package lock

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestNew_SelectsBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{backend: "", want: "*lock.RedisLocker"},
		{backend: BackendRedis, want: "*lock.RedisLocker"},
		{backend: BackendMemory, want: "*lock.KeyedMutex"},
		{backend: "etcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			l, err := New(tt.backend, rdb, time.Second, zerolog.Nop())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q) = %T, want error", tt.backend, l)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q): %v", tt.backend, err)
			}
			if got := fmt.Sprintf("%T", l); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.backend, got, tt.want)
			}
		})
	}
}
