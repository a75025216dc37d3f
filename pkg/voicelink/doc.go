// Package voicelink is the realtime audio streaming engine behind the
// voicelink client: it captures microphone input, frames it as base64 PCM16
// for a persistent message socket, schedules inbound frames on a gapless
// playback timeline, and derives live volume signals for UI feedback.
//
// # Overview
//
// The engine is built from five components:
//
//   - Codec: PCM16 <-> float sample conversion and base64 framing
//   - VolumeMeter: RMS activity level from a block of samples
//   - CaptureEngine: microphone ownership and the outbound frame stream
//   - PlaybackScheduler: gapless scheduling of inbound frames
//   - ConnectionManager: socket lifecycle and message routing
//
// Client ties them together:
//
//	config := voicelink.NewConfig()
//	client, err := voicelink.NewClient(config, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Cleanup()
//
//	client.AddTextHandler(voicelink.CreateTextPrinter())
//	client.AddConnectionHandler(voicelink.CreateConnectionStatusHandler(nil))
//
//	if err := client.Connect(); err != nil {
//		log.Fatal(err)
//	}
//
// Capture runs at 16 kHz mono in 4096-sample blocks; inbound playback frames
// arrive at 24 kHz. The rate asymmetry is part of the wire contract.
//
// # Wire protocol
//
// Messages are JSON objects tagged by a "type" field, one per event. See
// messages.go for the full tag set. Unknown tags are ignored; malformed
// payloads are dropped with an error report and never interrupt the stream.
//
// # Concurrency
//
// Three independent callback sources drive the engine: the capture device,
// the output device, and the socket read loop. None blocks on another.
// Capture drops frames under transport backpressure instead of stalling the
// realtime callback.
package voicelink
