// Package browser drives a Chromium instance via the DevTools protocol and
// turns intercepted segment responses into capture events. Each lane gets its
// own tab; interception never blocks the page, dropping events instead when a
// lane falls behind.
package browser
