// Package capture records clips from the camera and microphone.
//
// A Backend arms the device, reports when it is actually capturing, and on
// stop hands back an opaque Handle to the finished clip. Two variants exist:
// NativeBackend leaves each clip as a file in the managed recordings
// directory, MemoryBackend keeps clips in a process-local BufferRegistry.
// Handles from either variant can be opened and released through Resources,
// so a queue written by one variant stays readable after a config change.
//
// FFmpegDevice drives the physical device for both variants.
package capture
