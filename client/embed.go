// Package client ships the browser script that keeps the registration
// pages in sync with their live session.
package client

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// ScriptName is the file name the pages load the script under.
const ScriptName = "liveregister.js"

//go:embed src/liveregister.js
var script []byte

var etag = func() string {
	sum := sha256.Sum256(script)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

// Script returns the embedded script.
func Script() []byte {
	return script
}

// Check reports an error when the embedded script is missing.
func Check() error {
	if len(script) == 0 {
		return errors.New("client: embedded script is empty")
	}
	return nil
}

// Handler serves ScriptName with an ETag so browsers revalidate cheaply.
// Every other path is 404.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ScriptName && r.URL.Path != "/"+ScriptName {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("ETag", etag)
		http.ServeContent(w, r, ScriptName, time.Time{}, bytes.NewReader(script))
	})
}
