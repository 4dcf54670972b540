// Package main hosts the clipkeeper field CLI.
//
// The Cobra command tree covers the whole on-device workflow: saving the
// respondent profile, running a recording session on the terminal screen,
// inspecting and pruning the offline queue, and pushing pending clips to the
// ingestion service when the device is back online. Configuration, logging,
// and the on-device database are resolved once per invocation by the shared
// command context so subcommands stay declarative.
package main
