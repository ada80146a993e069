package limits

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimiter_AcquireRelease(t *testing.T) {
	cl := NewConnectionLimiter(2)

	assert.True(t, cl.Acquire("1.2.3.4"))
	assert.True(t, cl.Acquire("1.2.3.4"))
	assert.False(t, cl.Acquire("1.2.3.4"))
	assert.True(t, cl.Acquire("5.6.7.8"))

	assert.Equal(t, 2, cl.Count("1.2.3.4"))
	assert.Equal(t, int64(1), cl.TotalBlocked())
	assert.Equal(t, int64(3), cl.TotalAllowed())

	cl.Release("1.2.3.4")
	assert.Equal(t, 1, cl.Count("1.2.3.4"))
	assert.True(t, cl.Acquire("1.2.3.4"))

	cl.Release("1.2.3.4")
	cl.Release("1.2.3.4")
	cl.Release("1.2.3.4")
	assert.Equal(t, 0, cl.Count("1.2.3.4"))
}

func TestConnectionLimiter_Default(t *testing.T) {
	assert.Equal(t, DefaultMaxPerIP, NewConnectionLimiter(0).Max())
}

func TestConnectionLimiter_Concurrent(t *testing.T) {
	cl := NewConnectionLimiter(10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cl.Acquire("ip") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
	assert.Equal(t, int64(40), cl.TotalBlocked())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trust   bool
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", false, nil, "10.0.0.1:5555", "10.0.0.1"},
		{"remote without port", false, nil, "10.0.0.1", "10.0.0.1"},
		{"forwarded first", true, map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2"}, "10.0.0.1:5555", "1.1.1.1"},
		{"real ip", true, map[string]string{"X-Real-IP": "3.3.3.3"}, "10.0.0.1:5555", "3.3.3.3"},
		{"trusted without headers", true, nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded ignored", false, map[string]string{"X-Forwarded-For": "1.1.1.1"}, "10.0.0.1:5555", "10.0.0.1"},
		{"real ip ignored", false, map[string]string{"X-Real-IP": "3.3.3.3"}, "10.0.0.1:5555", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r, tt.trust))
		})
	}
}
