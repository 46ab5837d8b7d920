// Package approval implements the human-in-the-loop approval store. Gated
// tasks get a pending Request; a single human decision moves it to approved
// or rejected, after which it never changes.
package approval
