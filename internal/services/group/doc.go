// Package group manages the lifecycle of group sessions behind opaque
// handles: creating and joining groups, distributing membership commits,
// and sealing application messages under the current epoch's sender
// chains. Wire encoding and decoding of commits and envelopes happens
// here so callers only ever handle byte slices and handles.
package group
