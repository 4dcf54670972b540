// Package session runs one pass through an ordered list of prompts,
// recording one clip per prompt.
//
// The Controller moves through Idle, Arming, Recording, Stopping, and
// Processing for each prompt. Arming waits for the device to report it is
// live and then a lead-in before Recording begins; Stopping waits a trail
// before the device is stopped, so neither edge of the spoken sentence is
// clipped. A successful capture appends a queue item and advances to the
// next prompt; any failure passes through Error and returns to Idle on the
// same prompt so it can be retried.
//
// All waits go through a Clock so tests can observe them without sleeping.
// The package never touches the network.
package session
