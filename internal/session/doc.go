// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state of one conversation with the proxy.
//
// A Client owns the turn sequence, the busy flag and the last error. A submit
// is split into Begin (validate, append the user turn optimistically, capture
// the history) and Complete or Fail (append the reply, or roll the user turn
// back and expose the error). Front ends that run the request themselves,
// such as the Bubble Tea UI, call the two halves; the REPL calls Submit.
//
// # Usage
//
//	c := session.NewClient(proxyclient.New(url))
//	reply, err := c.Submit(ctx, "Recommend something like Dune")
//	if errors.Is(err, session.ErrBusy) {
//	    // a request is already in flight
//	}
package session
