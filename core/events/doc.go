// Package events defines the typed relay event contract.
//
// Event kinds form a closed enumeration grouped by producer-facing
// namespaces:
//
//   - capture.*
//   - user_input.*
//   - agent_response.*
//   - session.*
//
// Semantics used across the package:
//
//   - Signal: local lifecycle notification from a capture surface; drives the
//     session state machine but is never journaled or published.
//   - Outbound: event journaled before any delivery attempt and published to
//     the bus with at-least-once semantics.
//   - Inbound: event received from the bus and routed back to the session
//     that originated the interaction.
//
// capture events (signals)
//
//   - RecordingStarted (capture.recording_started): a capture surface began
//     recording, or voice activity was detected.
//   - SpeechEnded (capture.speech_ended): speech activity ended for the
//     current utterance.
//   - PlaybackCompleted (capture.playback_completed): the capture surface
//     finished playing the spoken reply.
//
// user_input events (outbound)
//
//   - Transcription (user_input.transcription): terminal transcript for the
//     utterance, addressed to the agent layer.
//
// agent_response events (inbound)
//
//   - AgentResponse (agent_response.tts): agent reply text to be synthesized
//     and played back on the originating surface.
//
// session events (outbound)
//
//   - SessionClosed (session.closed): the session was torn down or expired;
//     lets the agent layer release per-session context.
package events
