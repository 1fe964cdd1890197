// Package media wraps the ffprobe and ffmpeg command-line tools.
//
// Prober reads container and stream metadata. Transcoder converts audio,
// extracts the audio track from video and splits audio into fixed-length
// chunks. Every operation writes a new, uniquely named output file and never
// touches its input. Both run their tools through a process.Executor, so tests
// substitute fakes and production code gets timeouts and resilience from
// process.Runner.
package media
