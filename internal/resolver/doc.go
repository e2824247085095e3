// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package resolver finds a working model/endpoint combination for a prompt.
//
// A request goes through three stages:
//
//  1. Discovery: list the upstream models and pick the first one that
//     supports generateContent and belongs to the configured family.
//  2. Candidates: the discovered model alone, otherwise the fallback list.
//  3. Sweep: try every candidate against every API version in order and
//     stop at the first reply with text.
//
// A 404 or an empty reply moves on silently. Any other failure is remembered
// and becomes the request's error if nothing later succeeds. When nothing was
// remembered the sweep fails with ErrNoAvailableModel.
//
// Every attempt is reported to an optional Observer, which the audit log uses.
package resolver
