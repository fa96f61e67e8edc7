package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePayload(t *testing.T) {
	assert.Equal(t, "id=1 union select", decodePayload([]byte("id=1%20union%20select")))

	// '+' stays literal: it is only a space in form encoding, and the SQLi
	// exec pattern matches it explicitly.
	assert.Equal(t, "exec+sp_help", decodePayload([]byte("exec+sp_help")))

	// Undecodable sequences fall back to the raw payload.
	assert.Equal(t, "100%zz", decodePayload([]byte("100%zz")))
}

func TestSQLiPatternMatching(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		hits    int
	}{
		{"clean request", "GET /index.html HTTP/1.1", 0},
		{"union select", "id=1 union   select password", 1},
		{"case insensitive", "id=1 UNION SELECT password", 1},
		{"tautology", "user=x or 1=1", 1},
		{"quote and comment", "user=admin' --", 1}, // one pattern, two alternates
		{"quote comment tautology", "user=admin' or 1=1 --", 2},
		{"stored procedure", "cmd=exec+sp_makewebtask", 1},
		{"hash comment", "q=1%23", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.hits, countMatches(sqliPatterns, tc.payload))
		})
	}
}

func TestXSSPatternMatching(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		hits    int
	}{
		{"clean request", "GET /search?q=shoes HTTP/1.1", 0},
		{"script tag", "<script>document.write(1)</script>", 1},
		{"script with attrs", `<script defer>x</script>`, 1},
		{"event handler", `<img src=x onerror = stealCookies()>`, 1},
		{"javascript url", `<a href="javascript:void(0)">`, 1},
		{"script plus alert", "<script>alert(1)</script>", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.hits, countMatches(xssPatterns, tc.payload))
		})
	}
}

func TestExtractHost(t *testing.T) {
	payload := "GET / HTTP/1.1\r\nUser-Agent: curl\r\nHost:  EVIL.Example \r\nAccept: */*\r\n\r\n"
	assert.Equal(t, "evil.example", extractHost(payload))

	assert.Equal(t, "", extractHost("GET / HTTP/1.1\r\n\r\n"))

	// Header name matching ignores case.
	assert.Equal(t, "shop.example", extractHost("GET / HTTP/1.1\r\nhost: shop.example\r\n"))
}
