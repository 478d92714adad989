package browser

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseDevToolsLine(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"DevTools listening on ws://127.0.0.1:40123/devtools/browser/abc", "ws://127.0.0.1:40123/devtools/browser/abc", true},
		{"  DevTools listening on ws://127.0.0.1:1/x \r", "ws://127.0.0.1:1/x", true},
		{"DevTools listening on http://127.0.0.1:1/x", "", false},
		{"[1234:5678:ERROR:gpu_init.cc] something", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := parseDevToolsLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWaitForDevTools(t *testing.T) {
	out := "[0101/000000.000:WARNING] noise\nDevTools listening on ws://127.0.0.1:9222/devtools/browser/id\nmore noise\n"
	u, err := waitForDevTools(strings.NewReader(out), time.Second, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/id", u)
}

func TestWaitForDevToolsExited(t *testing.T) {
	_, err := waitForDevTools(strings.NewReader("crashed\n"), time.Second, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited")
}

func TestWaitForDevToolsTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	_, err := waitForDevTools(r, 20*time.Millisecond, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "within")
}

func TestChromeArgs(t *testing.T) {
	args := chromeArgs("/data/partitions/flickpay_operator", []string{"--disable-gpu"})
	require.NotEmpty(t, args)
	assert.Equal(t, "--user-data-dir=/data/partitions/flickpay_operator", args[0])
	assert.Equal(t, "--disable-gpu", args[1])
	assert.Contains(t, args, "--remote-debugging-port=0")
	assert.Contains(t, args, "--no-startup-window")
}

func TestProfileDirPerPartition(t *testing.T) {
	assert.NotEqual(t, profileDir("/p", "flickpay_operator"), profileDir("/p", "flickpay_kiosk"))
	assert.Equal(t, "/p/flickpay_kiosk", profileDir("/p", "flickpay_kiosk"))
}

func TestHostScript(t *testing.T) {
	methods := []string{"getConfig", "saveConfig"}

	t.Run("with bridge", func(t *testing.T) {
		js := hostScript("POS", true, methods)
		assert.Contains(t, js, `window["__flickposHost"]`)
		assert.Contains(t, js, `if (true)`)
		assert.Contains(t, js, `["getConfig","saveConfig"]`)
		assert.Contains(t, js, `["flickpos","flickpayConfig"]`)
		assert.Contains(t, js, `const scheme = "pos:"`)
	})

	t.Run("without bridge", func(t *testing.T) {
		js := hostScript("pos", false, methods)
		assert.Contains(t, js, `if (false)`)
		assert.Contains(t, js, "window.open =")
	})
}

func TestDecodePayload(t *testing.T) {
	t.Run("call", func(t *testing.T) {
		p, err := decodePayload(`{"kind":"call","id":3,"method":"verifyPin","args":["2809"]}`)
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.ID)
		assert.Equal(t, "verifyPin", p.Method)
		assert.JSONEq(t, `["2809"]`, string(p.Args))
	})

	t.Run("call without args", func(t *testing.T) {
		p, err := decodePayload(`{"kind":"call","id":1,"method":"getConfig"}`)
		require.NoError(t, err)
		assert.Equal(t, json.RawMessage("[]"), p.Args)
	})

	t.Run("navigate", func(t *testing.T) {
		p, err := decodePayload(`{"kind":"navigate","url":"pos://exit"}`)
		require.NoError(t, err)
		assert.Equal(t, "pos://exit", p.URL)
	})

	for name, raw := range map[string]string{
		"not json":        `{`,
		"unknown kind":    `{"kind":"eval"}`,
		"call no method":  `{"kind":"call","id":1}`,
		"popup no url":    `{"kind":"popup"}`,
		"navigate no url": `{"kind":"navigate","url":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodePayload(raw)
			assert.Error(t, err)
		})
	}
}

func TestReplyExpression(t *testing.T) {
	ok := replyExpression(7, map[string]bool{"ok": true}, nil)
	assert.Equal(t, `window.__flickposResolve && window.__flickposResolve(7, true, {"ok":true})`, ok)

	null := replyExpression(8, nil, nil)
	assert.True(t, strings.HasSuffix(null, "(8, true, null)"))

	failed := replyExpression(9, nil, errors.New(`bad "pin"`))
	assert.Equal(t, `window.__flickposResolve && window.__flickposResolve(9, false, "bad \"pin\"")`, failed)
}

func TestOriginOf(t *testing.T) {
	assert.Equal(t, "https://acme.flickpay.co.uk", originOf("https://acme.flickpay.co.uk/pos/1?x=y"))
	assert.Equal(t, "http://localhost:8080", originOf("http://localhost:8080/"))
	assert.Empty(t, originOf("file:///opt/flickpos/assets/default.html"))
	assert.Empty(t, originOf("about:blank"))
	assert.Empty(t, originOf("::"))
}

func TestSchemeOf(t *testing.T) {
	assert.Equal(t, "pos", schemeOf("pos://exit"))
	assert.Equal(t, "https", schemeOf("https://x"))
	assert.Empty(t, schemeOf("relative/path"))
	assert.Empty(t, schemeOf(":nothing"))
}

func TestResolveBinaryMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := ResolveBinary("")
	assert.ErrorIs(t, err, ErrNoBrowser)

	_, err = ResolveBinary("definitely-not-a-browser")
	assert.Error(t, err)
}
