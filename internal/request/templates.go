package request

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Mode selects the connection discipline for a run.
type Mode string

const (
	ModeKeepAlive Mode = "keepalive"
	ModeClose     Mode = "close"
)

// Header returns the Connection header value for the mode.
func (m Mode) Header() string {
	if m == ModeClose {
		return "close"
	}
	return "keep-alive"
}

func (m Mode) Valid() bool {
	return m == ModeKeepAlive || m == ModeClose
}

// TargetPath is the endpoint every request hits.
const TargetPath = "/compute/sum"

// DefaultSizes are the payload element counts requests are drawn from.
var DefaultSizes = []int{1, 8, 64, 256, 1024}

// TemplateCache holds one prebuilt request per payload size. Templates
// are immutable after construction and shared by all workers.
type TemplateCache struct {
	sizes     []int
	templates map[int][]byte
}

// NewTemplateCache serializes one JSON array body per size and wraps
// each in a full HTTP/1.1 POST request. Construction is pure: given a
// valid host and port it always succeeds.
func NewTemplateCache(host string, port int, mode Mode, sizes []int) *TemplateCache {
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	sizes = append([]int(nil), sizes...)
	sort.Ints(sizes)

	templates := make(map[int][]byte, len(sizes))
	for _, size := range sizes {
		templates[size] = Build(host, port, mode, Payload(size))
	}
	return &TemplateCache{sizes: sizes, templates: templates}
}

// Pick chooses a size uniformly at random and returns it with its
// template.
func (c *TemplateCache) Pick(rng *rand.Rand) (int, []byte) {
	size := c.sizes[rng.Intn(len(c.sizes))]
	return size, c.templates[size]
}

func (c *TemplateCache) Get(size int) []byte {
	return c.templates[size]
}

func (c *TemplateCache) Sizes() []int {
	return c.sizes
}

// Payload returns a JSON array of n ascending floats, e.g. [1,2,3].
func Payload(n int) []byte {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	body, _ := json.Marshal(values)
	return body
}

// Build assembles the raw request bytes: request line, headers with an
// exact Content-Length, blank line, body.
func Build(host string, port int, mode Mode, body []byte) []byte {
	var b strings.Builder
	b.Grow(160 + len(body))
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", TargetPath)
	fmt.Fprintf(&b, "Host: %s:%d\r\n", host, port)
	fmt.Fprintf(&b, "Connection: %s\r\n", mode.Header())
	b.WriteString("Content-Type: application/json\r\n")
	b.WriteString("Accept: application/json\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("\r\n")
	b.Write(body)
	return []byte(b.String())
}
