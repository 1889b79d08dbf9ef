package rotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextRoundRobinWrapsAround(t *testing.T) {
	r := New([]string{"ua-a", "ua-b"}, []string{"p1", "p2", "p3"}, 10)

	var uas, proxies []string
	for i := 0; i < 6; i++ {
		id := r.Next()
		uas = append(uas, id.UserAgent)
		proxies = append(proxies, id.Proxy)
	}

	assert.Equal(t, []string{"ua-a", "ua-b", "ua-a", "ua-b", "ua-a", "ua-b"}, uas)
	assert.Equal(t, []string{"p1", "p2", "p3", "p1", "p2", "p3"}, proxies)
}

func TestNextWithoutProxies(t *testing.T) {
	r := New(nil, nil, 10)
	id := r.Next()
	assert.Empty(t, id.Proxy)
	assert.NotEmpty(t, id.UserAgent, "built-in pool backs an empty configuration")
	assert.NotZero(t, id.ViewportWidth)
	assert.NotEmpty(t, id.AcceptLanguage)
}

func TestIndependentPoolCursors(t *testing.T) {
	r := New([]string{"ua-a", "ua-b", "ua-c"}, []string{"p1", "p2"}, 10)

	seen := make(map[string]struct{})
	for i := 0; i < 6; i++ {
		id := r.Next()
		seen[id.UserAgent+"|"+id.Proxy] = struct{}{}
	}
	assert.Len(t, seen, 6, "coprime pool lengths yield distinct combinations")
}

func TestDue(t *testing.T) {
	r := New(nil, nil, 25)
	assert.False(t, r.Due(0), "no rotation before any work")
	assert.False(t, r.Due(24))
	assert.True(t, r.Due(25))
	assert.False(t, r.Due(26))
	assert.True(t, r.Due(50))

	off := New(nil, nil, 0)
	assert.False(t, off.Due(100), "zero interval disables rotation")
}
